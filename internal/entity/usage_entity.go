package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserApiLimit struct {
	Id        uuid.UUID
	UserId    string
	Count     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
