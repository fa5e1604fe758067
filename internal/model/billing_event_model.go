package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BillingEvent is the webhook ledger. One row per (order, status) makes
// provider retries a no-op; the "applied" row per order makes the
// subscription change happen once.
type BillingEvent struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderId           string         `gorm:"type:varchar(191);not null;uniqueIndex:idx_billing_events_order_status,priority:1"`
	TransactionStatus string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_billing_events_order_status,priority:2"`
	UserId            string         `gorm:"type:varchar(191);index"`
	Payload           datatypes.JSON `gorm:"type:json"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
}

func (BillingEvent) TableName() string {
	return "billing_events"
}
