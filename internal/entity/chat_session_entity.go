package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is always a live session: soft-deleted rows never leave the
// repository.
type ChatSession struct {
	Id        uuid.UUID
	UserId    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Derived, never persisted.
	MessageCount int64
}
