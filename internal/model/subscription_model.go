package model

import (
	"time"

	"github.com/google/uuid"
)

type UserSubscription struct {
	Id               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserId           string     `gorm:"type:varchar(191);not null;uniqueIndex"`
	SubscriptionId   string     `gorm:"type:varchar(191);not null;uniqueIndex"` // Provider order reference
	CustomerRef      string     `gorm:"type:varchar(255)"`
	PriceId          string     `gorm:"type:varchar(191)"`
	CurrentPeriodEnd *time.Time `gorm:"index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}
