package dto

import (
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindServiceError       ErrorKind = "SERVICE_ERROR"
	KindUnknown            ErrorKind = "UNKNOWN"
)

const (
	MessageFreeTrialExpired = "Free trial has expired. Please upgrade to pro."
	MessageSlowDown         = "Too many requests. Please slow down."
)

// AppError is the only error shape allowed to cross the HTTP boundary.
// Err is kept for logging and never rendered.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewUnauthorizedError() *AppError {
	return &AppError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized"}
}

func NewInvalidInputError(message string) *AppError {
	return &AppError{Kind: KindInvalidInput, Status: http.StatusBadRequest, Message: message}
}

func NewForbiddenError() *AppError {
	return &AppError{Kind: KindForbidden, Status: http.StatusForbidden, Message: MessageFreeTrialExpired}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// NewServiceUnavailableError covers missing configuration and an entitlement
// store that cannot answer. Both surface as 500.
func NewServiceUnavailableError(message string, err error) *AppError {
	return &AppError{Kind: KindServiceUnavailable, Status: http.StatusInternalServerError, Message: message, Err: err}
}

func NewRateLimitedError(err error) *AppError {
	return &AppError{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: MessageSlowDown, Err: err}
}

func NewServiceError(message string, err error) *AppError {
	return &AppError{Kind: KindServiceError, Status: http.StatusInternalServerError, Message: message, Err: err}
}

func NewUnknownError(err error) *AppError {
	return &AppError{Kind: KindUnknown, Status: http.StatusInternalServerError, Message: "Internal Error", Err: err}
}
