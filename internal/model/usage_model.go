package model

import (
	"time"

	"github.com/google/uuid"
)

// UserApiLimit counts free-tier conversation turns per user.
type UserApiLimit struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    string    `gorm:"type:varchar(191);not null;uniqueIndex"`
	Count     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserApiLimit) TableName() string {
	return "user_api_limits"
}
