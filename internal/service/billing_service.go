package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"genius-be/internal/dto"
	"genius-be/internal/entity"
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/mailer"
	"genius-be/internal/pkg/metrics"
	"genius-be/internal/pkg/payment"
	"genius-be/internal/repository/specification"
	"genius-be/internal/repository/unitofwork"
	"genius-be/pkg/events"

	"github.com/google/uuid"
)

const billingModule = "BILLING"

const orderIdPrefix = "genius-"

type IBillingService interface {
	Checkout(ctx context.Context, userId, email string) (*dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, request *dto.MidtransWebhookRequest) error
	Status(ctx context.Context, userId string) (*dto.SubscriptionStatusResponse, error)
}

// SubscriptionGate is the part of entitlement.Gate billing needs.
type SubscriptionGate interface {
	Subscription(ctx context.Context, userId string) (*entity.UserSubscription, error)
	Invalidate(userId string)
}

type BillingPlan struct {
	PriceId    string
	Name       string
	Amount     int64
	PeriodDays int
	FinishURL  string
}

func (p BillingPlan) period() time.Duration {
	return time.Duration(p.PeriodDays) * 24 * time.Hour
}

// checkoutContext is what we remember about an order when it is opened,
// so the webhook does not have to trust the provider's echo of it.
type checkoutContext struct {
	Email          string `json:"email,omitempty"`
	PriceId        string `json:"price_id"`
	SubscriptionId string `json:"subscription_id,omitempty"`
}

type billingService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    payment.Gateway
	plan       BillingPlan
	gate       SubscriptionGate
	mailer     mailer.IEmailService
	publisher  events.Publisher
	metrics    metrics.MetricsCollector
	logger     logger.ILogger
	now        func() time.Time
}

// NewBillingService wires checkout and webhook handling. mail may be nil when
// SMTP is not configured.
func NewBillingService(
	uowFactory unitofwork.RepositoryFactory,
	gateway payment.Gateway,
	plan BillingPlan,
	gate SubscriptionGate,
	mail mailer.IEmailService,
	publisher events.Publisher,
	collector metrics.MetricsCollector,
	log logger.ILogger,
) IBillingService {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &billingService{
		uowFactory: uowFactory,
		gateway:    gateway,
		plan:       plan,
		gate:       gate,
		mailer:     mail,
		publisher:  publisher,
		metrics:    collector,
		logger:     log,
		now:        time.Now,
	}
}

func (s *billingService) Checkout(ctx context.Context, userId, email string) (*dto.CheckoutResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	sub, err := s.gate.Subscription(ctx, userId)
	if err != nil {
		return nil, dto.NewUnknownError(err)
	}

	checkout := checkoutContext{Email: email, PriceId: s.plan.PriceId}
	if sub != nil && sub.SubscriptionId != "" {
		checkout.SubscriptionId = sub.SubscriptionId
	}
	payload, err := json.Marshal(checkout)
	if err != nil {
		return nil, dto.NewUnknownError(err)
	}

	orderId := orderIdPrefix + uuid.NewString()
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := uow.BillingEventRepository().Record(ctx, &entity.BillingEvent{
		OrderId:           orderId,
		TransactionStatus: entity.TransactionCheckout,
		UserId:            userId,
		Payload:           payload,
		CreatedAt:         s.now().UTC(),
	}); err != nil {
		return nil, dto.NewUnknownError(err)
	}

	result, err := s.gateway.CreateCheckout(payment.CheckoutRequest{
		OrderId:        orderId,
		Amount:         s.plan.Amount,
		ItemId:         s.plan.PriceId,
		ItemName:       s.plan.Name,
		UserId:         userId,
		Email:          email,
		PriceId:        s.plan.PriceId,
		SubscriptionId: checkout.SubscriptionId,
		FinishURL:      s.plan.FinishURL,
	})
	if err != nil {
		s.logger.Error(billingModule, "Checkout creation failed", map[string]interface{}{
			"user_id":  userId,
			"order_id": orderId,
			"error":    err.Error(),
		})
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, dto.NewServiceUnavailableError("Billing not configured", err)
		}
		return nil, dto.NewServiceError("Payment provider error", err)
	}

	s.logger.Info(billingModule, "Checkout created", map[string]interface{}{
		"user_id":  userId,
		"order_id": orderId,
		"renewal":  checkout.SubscriptionId != "",
	})

	return &dto.CheckoutResponse{
		OrderId:         orderId,
		SnapRedirectUrl: result.RedirectURL,
		SnapToken:       result.Token,
	}, nil
}

func (s *billingService) HandleNotification(ctx context.Context, request *dto.MidtransWebhookRequest) error {
	if request == nil || request.OrderId == "" {
		return dto.NewInvalidInputError("Order id is required")
	}
	if !s.gateway.VerifySignature(request.OrderId, request.StatusCode, request.GrossAmount, request.SignatureKey) {
		s.logger.Warn(billingModule, "Webhook signature mismatch", map[string]interface{}{
			"order_id": request.OrderId,
		})
		return dto.NewInvalidInputError("Invalid signature")
	}

	// The notification body only tells us something changed; the provider's
	// own status is what we act on.
	status, err := s.gateway.CheckStatus(request.OrderId)
	if err != nil {
		return dto.NewServiceError("Payment provider error", err)
	}
	txStatus := entity.TransactionStatus(status.TransactionStatus)
	paid := isPaid(txStatus, status.FraudStatus)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	checkout, userId, err := s.resolveCheckout(ctx, uow, request)
	if err != nil {
		return dto.NewUnknownError(err)
	}
	if paid && userId == "" {
		return dto.NewInvalidInputError("User id is required")
	}

	raw, err := json.Marshal(request)
	if err != nil {
		return dto.NewUnknownError(err)
	}

	if err := uow.Begin(ctx); err != nil {
		return dto.NewUnknownError(err)
	}
	defer uow.Rollback()

	inserted, err := uow.BillingEventRepository().Record(ctx, &entity.BillingEvent{
		OrderId:           request.OrderId,
		TransactionStatus: txStatus,
		UserId:            userId,
		Payload:           raw,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return dto.NewUnknownError(err)
	}
	if !inserted {
		s.metrics.RecordBillingEvent(string(txStatus), true)
		s.logger.Info(billingModule, "Duplicate notification ignored", map[string]interface{}{
			"order_id": request.OrderId,
			"status":   string(txStatus),
		})
		return nil
	}

	if !paid {
		if err := uow.Commit(); err != nil {
			return dto.NewUnknownError(err)
		}
		s.metrics.RecordBillingEvent(string(txStatus), false)
		s.logger.Info(billingModule, "Notification recorded", map[string]interface{}{
			"order_id": request.OrderId,
			"status":   string(txStatus),
		})
		return nil
	}

	// A card payment is reported paid twice, as capture and then as
	// settlement. Only the first one may move the subscription.
	applied, err := uow.BillingEventRepository().Record(ctx, &entity.BillingEvent{
		OrderId:           request.OrderId,
		TransactionStatus: entity.TransactionApplied,
		UserId:            userId,
		Payload:           raw,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return dto.NewUnknownError(err)
	}
	if !applied {
		if err := uow.Commit(); err != nil {
			return dto.NewUnknownError(err)
		}
		s.metrics.RecordBillingEvent(string(txStatus), false)
		s.logger.Info(billingModule, "Payment already applied", map[string]interface{}{
			"order_id": request.OrderId,
			"status":   string(txStatus),
		})
		return nil
	}

	now := s.now().UTC()
	var periodEnd time.Time
	if checkout.SubscriptionId != "" {
		existing, err := uow.SubscriptionRepository().FindOne(ctx, specification.BySubscriptionID{SubscriptionID: checkout.SubscriptionId})
		if err != nil {
			return dto.NewUnknownError(err)
		}
		if existing == nil {
			// The payment itself stays on the ledger.
			if err := uow.Commit(); err != nil {
				return dto.NewUnknownError(err)
			}
			s.metrics.RecordBillingEvent(string(txStatus), false)
			s.logger.Warn(billingModule, "Renewal for unknown subscription", map[string]interface{}{
				"order_id":        request.OrderId,
				"subscription_id": checkout.SubscriptionId,
			})
			return nil
		}

		base := now
		if existing.CurrentPeriodEnd != nil && existing.CurrentPeriodEnd.After(now) {
			base = *existing.CurrentPeriodEnd
		}
		periodEnd = base.Add(s.plan.period())
		if _, err := uow.SubscriptionRepository().UpdateBySubscriptionId(ctx, checkout.SubscriptionId, checkout.PriceId, periodEnd); err != nil {
			return dto.NewUnknownError(err)
		}
		userId = existing.UserId
	} else {
		periodEnd = now.Add(s.plan.period())
		if err := uow.SubscriptionRepository().UpsertByUserId(ctx, &entity.UserSubscription{
			UserId:           userId,
			SubscriptionId:   request.OrderId,
			CustomerRef:      checkout.Email,
			PriceId:          checkout.PriceId,
			CurrentPeriodEnd: &periodEnd,
		}); err != nil {
			return dto.NewUnknownError(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return dto.NewUnknownError(err)
	}
	s.metrics.RecordBillingEvent(string(txStatus), false)
	s.gate.Invalidate(userId)

	s.logger.Info(billingModule, "Subscription updated", map[string]interface{}{
		"user_id":    userId,
		"order_id":   request.OrderId,
		"price_id":   checkout.PriceId,
		"period_end": periodEnd,
	})

	s.sendReceipt(userId, checkout.Email, periodEnd)

	if s.publisher != nil {
		event := events.NewSubscriptionUpdated(userId, checkout.PriceId, periodEnd, now)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn(billingModule, "Failed to publish event", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (s *billingService) Status(ctx context.Context, userId string) (*dto.SubscriptionStatusResponse, error) {
	if userId == "" {
		return nil, dto.NewUnauthorizedError()
	}

	sub, err := s.gate.Subscription(ctx, userId)
	if err != nil {
		return nil, dto.NewUnknownError(err)
	}
	if sub == nil {
		return &dto.SubscriptionStatusResponse{}, nil
	}
	return &dto.SubscriptionStatusResponse{
		Subscribed:       sub.IsActiveAt(s.now()),
		PriceId:          sub.PriceId,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}, nil
}

// resolveCheckout prefers the checkout row written by Checkout and falls
// back to the custom fields echoed in the notification.
func (s *billingService) resolveCheckout(ctx context.Context, uow unitofwork.UnitOfWork, request *dto.MidtransWebhookRequest) (checkoutContext, string, error) {
	checkout := checkoutContext{
		PriceId:        request.CustomField2,
		SubscriptionId: request.CustomField3,
	}
	userId := request.CustomField1

	opened, err := uow.BillingEventRepository().FindOne(ctx,
		specification.ByOrderID{OrderID: request.OrderId},
		specification.ByTransactionStatus{Status: string(entity.TransactionCheckout)},
	)
	if err != nil {
		return checkout, "", err
	}
	if opened != nil {
		var stored checkoutContext
		if err := json.Unmarshal(opened.Payload, &stored); err != nil {
			return checkout, "", err
		}
		checkout = stored
		userId = opened.UserId
	}

	if checkout.PriceId == "" {
		checkout.PriceId = s.plan.PriceId
	}
	return checkout, userId, nil
}

func (s *billingService) sendReceipt(userId, email string, periodEnd time.Time) {
	if s.mailer == nil || email == "" {
		return
	}
	if err := s.mailer.SendSubscriptionReceipt(email, s.plan.Name, periodEnd); err != nil {
		s.logger.Warn(billingModule, "Failed to send receipt", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
}

// isPaid treats settlement as paid, and capture as paid unless the fraud
// check flagged it.
func isPaid(status entity.TransactionStatus, fraudStatus string) bool {
	switch status {
	case entity.TransactionSettlement:
		return true
	case entity.TransactionCapture:
		return fraudStatus == "" || fraudStatus == "accept"
	default:
		return false
	}
}
