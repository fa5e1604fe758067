// Package payment wraps the Midtrans Snap and Core APIs behind a small
// gateway the billing service can fake in tests.
package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

var ErrNotConfigured = errors.New("midtrans server key not configured")

type CheckoutRequest struct {
	OrderId        string
	Amount         int64
	ItemId         string
	ItemName       string
	UserId         string
	Email          string
	PriceId        string
	SubscriptionId string
	FinishURL      string
}

type CheckoutResult struct {
	Token       string
	RedirectURL string
}

// TransactionStatus is the provider's own view of an order.
type TransactionStatus struct {
	OrderId           string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
}

type Gateway interface {
	CreateCheckout(req CheckoutRequest) (*CheckoutResult, error)
	CheckStatus(orderId string) (*TransactionStatus, error)
	VerifySignature(orderId, statusCode, grossAmount, signature string) bool
}

type MidtransGateway struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewMidtransGateway(serverKey string, isProduction bool) *MidtransGateway {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	g := &MidtransGateway{serverKey: serverKey}
	g.snap.New(serverKey, env)
	g.core.New(serverKey, env)
	return g
}

func (g *MidtransGateway) CreateCheckout(req CheckoutRequest) (*CheckoutResult, error) {
	if g.serverKey == "" {
		return nil, ErrNotConfigured
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderId,
			GrossAmt: req.Amount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemId,
				Price: req.Amount,
				Qty:   1,
				Name:  req.ItemName,
			},
		},
		CustomField1:    req.UserId,
		CustomField2:    req.PriceId,
		CustomField3:    req.SubscriptionId,
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if req.FinishURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.FinishURL}
	}
	if req.Email != "" {
		snapReq.CustomerDetail = &midtrans.CustomerDetails{Email: req.Email}
	}

	resp, midErr := g.snap.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}
	return &CheckoutResult{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (g *MidtransGateway) CheckStatus(orderId string) (*TransactionStatus, error) {
	if g.serverKey == "" {
		return nil, ErrNotConfigured
	}

	resp, midErr := g.core.CheckTransaction(orderId)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}
	return &TransactionStatus{
		OrderId:           resp.OrderID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
	}, nil
}

func (g *MidtransGateway) VerifySignature(orderId, statusCode, grossAmount, signature string) bool {
	if g.serverKey == "" {
		return false
	}
	expected := Signature(orderId, statusCode, grossAmount, g.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Signature is the hex SHA512 Midtrans puts in signature_key.
func Signature(orderId, statusCode, grossAmount, serverKey string) string {
	return fmt.Sprintf("%x", sha512.Sum512([]byte(orderId+statusCode+grossAmount+serverKey)))
}
