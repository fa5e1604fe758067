package llm

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned before any network call when the history is
// empty or has no user entry.
var ErrInvalidInput = errors.New("completion input must contain at least one user message")

type ErrorKind string

const (
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnauthorized ErrorKind = "unauthorized"
	KindEmpty        ErrorKind = "empty"
	KindUnknown      ErrorKind = "unknown"
)

// Error is a classified backend failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("llm %s", e.Kind)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// KindForStatus maps an upstream HTTP status to a failure kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case 429:
		return KindRateLimited
	case 401, 403:
		return KindUnauthorized
	default:
		return KindUnknown
	}
}

// ValidateHistory checks the precondition shared by every backend.
func ValidateHistory(history []Message) error {
	for _, m := range history {
		if m.Role == RoleUser {
			return nil
		}
	}
	return ErrInvalidInput
}
