package dto

import (
	"time"
)

type CheckoutResponse struct {
	OrderId         string `json:"order_id"`
	SnapRedirectUrl string `json:"snap_redirect_url"`
	SnapToken       string `json:"snap_token"`
}

// MidtransWebhookRequest is the notification Midtrans posts after a
// transaction changes state. The custom fields carry what we set at checkout.
type MidtransWebhookRequest struct {
	TransactionStatus string `json:"transaction_status"`
	TransactionId     string `json:"transaction_id"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	// Signature validation fields
	SignatureKey string `json:"signature_key"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`

	CustomField1 string `json:"custom_field1"` // user id
	CustomField2 string `json:"custom_field2"` // price id
	CustomField3 string `json:"custom_field3"` // subscription id, renewals only
}

type SubscriptionStatusResponse struct {
	Subscribed       bool       `json:"subscribed"`
	PriceId          string     `json:"price_id,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}
