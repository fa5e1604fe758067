package entity

import (
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	// TransactionCheckout marks the row written when a checkout is opened.
	// It is ours, not the provider's.
	TransactionCheckout TransactionStatus = "checkout"
	// TransactionApplied marks the order whose payment already changed the
	// subscription. Capture and settlement of one card payment share it.
	TransactionApplied    TransactionStatus = "applied"
	TransactionCapture    TransactionStatus = "capture"
	TransactionSettlement TransactionStatus = "settlement"
	TransactionPending    TransactionStatus = "pending"
	TransactionDeny       TransactionStatus = "deny"
	TransactionCancel     TransactionStatus = "cancel"
	TransactionExpire     TransactionStatus = "expire"
)

type BillingEvent struct {
	Id                uuid.UUID
	OrderId           string
	TransactionStatus TransactionStatus
	UserId            string
	Payload           []byte
	CreatedAt         time.Time
}
