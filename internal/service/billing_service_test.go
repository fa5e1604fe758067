package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"genius-be/internal/dto"
	"genius-be/internal/entity"
	"genius-be/internal/model"
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/payment"
	"genius-be/internal/repository/memory"
	"genius-be/internal/repository/unitofwork"
	"genius-be/internal/testutil"
	"genius-be/pkg/entitlement"
	"genius-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	checkouts  []payment.CheckoutRequest
	statuses   map[string]*payment.TransactionStatus
	checkErr   error
	createErr  error
	validSig   string
	statusHits int
}

func (g *fakeGateway) CreateCheckout(req payment.CheckoutRequest) (*payment.CheckoutResult, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.checkouts = append(g.checkouts, req)
	return &payment.CheckoutResult{Token: "snap-token", RedirectURL: "https://pay.test/" + req.OrderId}, nil
}

func (g *fakeGateway) CheckStatus(orderId string) (*payment.TransactionStatus, error) {
	g.statusHits++
	if g.checkErr != nil {
		return nil, g.checkErr
	}
	if st, ok := g.statuses[orderId]; ok {
		return st, nil
	}
	return &payment.TransactionStatus{OrderId: orderId, TransactionStatus: "pending"}, nil
}

func (g *fakeGateway) VerifySignature(_, _, _, signature string) bool {
	return signature == g.validSig
}

func (g *fakeGateway) settle(orderId, status, fraud string) {
	if g.statuses == nil {
		g.statuses = map[string]*payment.TransactionStatus{}
	}
	g.statuses[orderId] = &payment.TransactionStatus{OrderId: orderId, TransactionStatus: status, FraudStatus: fraud}
}

type receiptRecorder struct {
	sent []string
	err  error
}

func (r *receiptRecorder) SendSubscriptionReceipt(toEmail, _ string, _ time.Time) error {
	r.sent = append(r.sent, toEmail)
	return r.err
}

var billingNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type billingFixture struct {
	db        *gorm.DB
	svc       *billingService
	gateway   *fakeGateway
	gate      *entitlement.Gate
	mail      *receiptRecorder
	publisher *recordingPublisher
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	factory := unitofwork.NewRepositoryFactory(db)
	clock := func() time.Time { return billingNow }

	gate := entitlement.NewGate(factory, 1,
		entitlement.WithClock(clock),
		entitlement.WithSubscriptionCache(memory.NewSubscriptionCache(time.Minute)),
	)
	gateway := &fakeGateway{validSig: "good-signature"}
	mail := &receiptRecorder{}
	publisher := &recordingPublisher{}

	plan := BillingPlan{PriceId: "genius-pro-monthly", Name: "Genius Pro", Amount: 200000, PeriodDays: 30}
	svc := NewBillingService(factory, gateway, plan, gate, mail, publisher, nil, logger.NewNopLogger()).(*billingService)
	svc.now = clock

	return &billingFixture{db: db, svc: svc, gateway: gateway, gate: gate, mail: mail, publisher: publisher}
}

func (f *billingFixture) notify(orderId string) *dto.MidtransWebhookRequest {
	return &dto.MidtransWebhookRequest{
		OrderId:      orderId,
		StatusCode:   "200",
		GrossAmount:  "200000.00",
		SignatureKey: "good-signature",
	}
}

func (f *billingFixture) subscription(t *testing.T, userId string) *model.UserSubscription {
	t.Helper()
	var sub model.UserSubscription
	err := f.db.Where("user_id = ?", userId).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &sub
}

func (f *billingFixture) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.BillingEvent{}).Where("transaction_status NOT IN ?", []string{"checkout", "applied"}).Count(&n).Error)
	return n
}

func TestCheckoutFirstSubscription(t *testing.T) {
	f := newBillingFixture(t)

	resp, err := f.svc.Checkout(context.Background(), "user-a", "ada@example.com")
	require.NoError(t, err)

	assert.Contains(t, resp.OrderId, orderIdPrefix)
	assert.Equal(t, "snap-token", resp.SnapToken)
	require.Len(t, f.gateway.checkouts, 1)

	req := f.gateway.checkouts[0]
	assert.Equal(t, "user-a", req.UserId)
	assert.Equal(t, "genius-pro-monthly", req.PriceId)
	assert.Equal(t, int64(200000), req.Amount)
	assert.Empty(t, req.SubscriptionId)
}

func TestCheckoutRequiresUser(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.Checkout(context.Background(), "", "")

	requireAppError(t, err, dto.KindUnauthorized, http.StatusUnauthorized)
	assert.Empty(t, f.gateway.checkouts)
}

func TestCheckoutProviderNotConfigured(t *testing.T) {
	f := newBillingFixture(t)
	f.gateway.createErr = payment.ErrNotConfigured

	_, err := f.svc.Checkout(context.Background(), "user-a", "")

	requireAppError(t, err, dto.KindServiceUnavailable, http.StatusInternalServerError)
}

func TestPaidNotificationActivatesSubscription(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	before, err := f.gate.IsAllowed(ctx, "user-a")
	require.NoError(t, err)
	require.False(t, before.Subscribed)

	resp, err := f.svc.Checkout(ctx, "user-a", "ada@example.com")
	require.NoError(t, err)
	f.gateway.settle(resp.OrderId, "settlement", "")

	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))

	sub := f.subscription(t, "user-a")
	require.NotNil(t, sub)
	assert.Equal(t, resp.OrderId, sub.SubscriptionId)
	assert.Equal(t, "genius-pro-monthly", sub.PriceId)
	assert.Equal(t, "ada@example.com", sub.CustomerRef)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(billingNow.Add(30*24*time.Hour)))

	after, err := f.gate.IsAllowed(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, after.Subscribed, "cache must be invalidated by the webhook")

	assert.Equal(t, []string{"ada@example.com"}, f.mail.sent)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeSubscriptionUpdated, f.publisher.events[0].EventType())
}

func TestDuplicateNotificationIsNoOp(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, "user-a", "ada@example.com")
	require.NoError(t, err)
	f.gateway.settle(resp.OrderId, "settlement", "")

	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))
	first := f.subscription(t, "user-a")

	f.svc.now = func() time.Time { return billingNow.Add(time.Hour) }
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))

	second := f.subscription(t, "user-a")
	assert.True(t, first.CurrentPeriodEnd.Equal(*second.CurrentPeriodEnd))
	assert.Equal(t, int64(1), f.ledgerCount(t))
	assert.Len(t, f.mail.sent, 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestRenewalExtendsFromCurrentEnd(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, "user-a", "")
	require.NoError(t, err)
	f.gateway.settle(first.OrderId, "settlement", "")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(first.OrderId)))

	renewal, err := f.svc.Checkout(ctx, "user-a", "")
	require.NoError(t, err)
	require.Len(t, f.gateway.checkouts, 2)
	assert.Equal(t, first.OrderId, f.gateway.checkouts[1].SubscriptionId)

	f.gateway.settle(renewal.OrderId, "capture", "accept")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(renewal.OrderId)))

	sub := f.subscription(t, "user-a")
	assert.Equal(t, first.OrderId, sub.SubscriptionId)
	assert.True(t, sub.CurrentPeriodEnd.Equal(billingNow.Add(60*24*time.Hour)))
}

func TestCaptureThenSettlementAppliesRenewalOnce(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	first, err := f.svc.Checkout(ctx, "user-a", "")
	require.NoError(t, err)
	f.gateway.settle(first.OrderId, "settlement", "")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(first.OrderId)))

	renewal, err := f.svc.Checkout(ctx, "user-a", "")
	require.NoError(t, err)

	f.gateway.settle(renewal.OrderId, "capture", "accept")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(renewal.OrderId)))

	f.svc.now = func() time.Time { return billingNow.Add(2 * time.Hour) }
	f.gateway.settle(renewal.OrderId, "settlement", "")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(renewal.OrderId)))

	sub := f.subscription(t, "user-a")
	assert.True(t, sub.CurrentPeriodEnd.Equal(billingNow.Add(60*24*time.Hour)),
		"one paid renewal extends by one period, got %s", sub.CurrentPeriodEnd)
	assert.Equal(t, int64(3), f.ledgerCount(t), "every provider status stays on the ledger")
	assert.Len(t, f.publisher.events, 2)
}

func TestCaptureThenSettlementKeepsFirstPeriod(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, "user-a", "ada@example.com")
	require.NoError(t, err)

	f.gateway.settle(resp.OrderId, "capture", "accept")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))

	f.svc.now = func() time.Time { return billingNow.Add(24 * time.Hour) }
	f.gateway.settle(resp.OrderId, "settlement", "")
	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))

	sub := f.subscription(t, "user-a")
	assert.True(t, sub.CurrentPeriodEnd.Equal(billingNow.Add(30*24*time.Hour)))
	assert.Len(t, f.mail.sent, 1)
}

func TestRenewalForUnknownSubscriptionIsSwallowed(t *testing.T) {
	f := newBillingFixture(t)
	f.gateway.settle("genius-orphan", "settlement", "")

	req := f.notify("genius-orphan")
	req.CustomField1 = "user-a"
	req.CustomField3 = "genius-gone"

	require.NoError(t, f.svc.HandleNotification(context.Background(), req))

	assert.Nil(t, f.subscription(t, "user-a"))
	assert.Equal(t, int64(1), f.ledgerCount(t))
	assert.Empty(t, f.publisher.events)
}

func TestUnpaidStatusesOnlyLedger(t *testing.T) {
	tests := []struct {
		name   string
		status string
		fraud  string
	}{
		{name: "pending", status: "pending"},
		{name: "denied", status: "deny"},
		{name: "expired", status: "expire"},
		{name: "capture challenged", status: "capture", fraud: "challenge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBillingFixture(t)
			ctx := context.Background()

			resp, err := f.svc.Checkout(ctx, "user-a", "ada@example.com")
			require.NoError(t, err)
			f.gateway.settle(resp.OrderId, tt.status, tt.fraud)

			require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))

			assert.Nil(t, f.subscription(t, "user-a"))
			assert.Equal(t, int64(1), f.ledgerCount(t))
			assert.Empty(t, f.mail.sent)
		})
	}
}

func TestNotificationTrustsProviderStatusOverBody(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, "user-a", "")
	require.NoError(t, err)

	req := f.notify(resp.OrderId)
	req.TransactionStatus = "settlement"

	require.NoError(t, f.svc.HandleNotification(ctx, req))

	assert.Nil(t, f.subscription(t, "user-a"))
}

func TestNotificationRejections(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		f := newBillingFixture(t)
		req := f.notify("genius-1")
		req.SignatureKey = "forged"

		err := f.svc.HandleNotification(context.Background(), req)

		requireAppError(t, err, dto.KindInvalidInput, http.StatusBadRequest)
		assert.Zero(t, f.gateway.statusHits)
		assert.Zero(t, f.ledgerCount(t))
	})

	t.Run("missing order id", func(t *testing.T) {
		f := newBillingFixture(t)

		err := f.svc.HandleNotification(context.Background(), f.notify(""))

		requireAppError(t, err, dto.KindInvalidInput, http.StatusBadRequest)
	})

	t.Run("paid without a user", func(t *testing.T) {
		f := newBillingFixture(t)
		f.gateway.settle("genius-anon", "settlement", "")

		err := f.svc.HandleNotification(context.Background(), f.notify("genius-anon"))

		requireAppError(t, err, dto.KindInvalidInput, http.StatusBadRequest)
		assert.Zero(t, f.ledgerCount(t))
	})

	t.Run("status lookup fails", func(t *testing.T) {
		f := newBillingFixture(t)
		f.gateway.checkErr = errors.New("midtrans down")

		err := f.svc.HandleNotification(context.Background(), f.notify("genius-1"))

		requireAppError(t, err, dto.KindServiceError, http.StatusInternalServerError)
		assert.Zero(t, f.ledgerCount(t))
	})
}

func TestReceiptFailureDoesNotFailWebhook(t *testing.T) {
	f := newBillingFixture(t)
	f.mail.err = errors.New("smtp down")
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, "user-a", "ada@example.com")
	require.NoError(t, err)
	f.gateway.settle(resp.OrderId, "settlement", "")

	require.NoError(t, f.svc.HandleNotification(ctx, f.notify(resp.OrderId)))
	assert.NotNil(t, f.subscription(t, "user-a"))
}

func TestBillingStatus(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	status, err := f.svc.Status(ctx, "user-a")
	require.NoError(t, err)
	assert.False(t, status.Subscribed)
	assert.Nil(t, status.CurrentPeriodEnd)

	end := billingNow.Add(-2 * time.Hour)
	require.NoError(t, unitofwork.NewUnitOfWork(f.db).SubscriptionRepository().UpsertByUserId(ctx, &entity.UserSubscription{
		UserId:           "user-b",
		SubscriptionId:   "genius-b",
		PriceId:          "genius-pro-monthly",
		CurrentPeriodEnd: &end,
	}))

	status, err = f.svc.Status(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, status.Subscribed, "inside the grace day")
	assert.Equal(t, "genius-pro-monthly", status.PriceId)

	_, err = f.svc.Status(ctx, "")
	requireAppError(t, err, dto.KindUnauthorized, http.StatusUnauthorized)
}
