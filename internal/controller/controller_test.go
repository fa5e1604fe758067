package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"genius-be/internal/dto"
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubConversationService struct {
	lastUser    string
	lastSession string
	lastSend    *dto.SendConversationRequest
	sendErr     error
	historyErr  error
}

func (s *stubConversationService) ListSessions(_ context.Context, userId string) (*dto.ListConversationsResponse, error) {
	s.lastUser = userId
	return &dto.ListConversationsResponse{Sessions: []dto.ConversationSessionResponse{}}, nil
}

func (s *stubConversationService) GetHistory(_ context.Context, userId, sessionId string) (*dto.ConversationHistoryResponse, error) {
	s.lastUser, s.lastSession = userId, sessionId
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return &dto.ConversationHistoryResponse{Messages: []dto.ConversationMessageResponse{}}, nil
}

func (s *stubConversationService) Send(_ context.Context, userId string, req *dto.SendConversationRequest) (*dto.SendConversationResponse, error) {
	s.lastUser, s.lastSend = userId, req
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &dto.SendConversationResponse{
		SessionId: uuid.MustParse("7f3c2a8e-0000-4000-8000-000000000001"),
		Message:   dto.AssistantMessageResponse{Role: "assistant", Content: "Up to 40 km/h."},
	}, nil
}

func (s *stubConversationService) DeleteSession(_ context.Context, userId, sessionId string) error {
	s.lastUser, s.lastSession = userId, sessionId
	return nil
}

func (s *stubConversationService) Usage(_ context.Context, userId string) (*dto.UsageResponse, error) {
	s.lastUser = userId
	return &dto.UsageResponse{Used: 2, Limit: 5}, nil
}

type stubBillingService struct {
	lastUser    string
	lastEmail   string
	lastWebhook *dto.MidtransWebhookRequest
	webhookErr  error
}

func (s *stubBillingService) Checkout(_ context.Context, userId, email string) (*dto.CheckoutResponse, error) {
	s.lastUser, s.lastEmail = userId, email
	return &dto.CheckoutResponse{OrderId: "genius-1", SnapToken: "tok"}, nil
}

func (s *stubBillingService) HandleNotification(_ context.Context, req *dto.MidtransWebhookRequest) error {
	s.lastWebhook = req
	return s.webhookErr
}

func (s *stubBillingService) Status(_ context.Context, userId string) (*dto.SubscriptionStatusResponse, error) {
	s.lastUser = userId
	return &dto.SubscriptionStatusResponse{Subscribed: true, PriceId: "genius-pro-monthly"}, nil
}

func newTestApp(conv *stubConversationService, billing *stubBillingService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.NewErrorHandler(logger.NewNopLogger())})
	auth := serverutils.NewJwtMiddleware(testSecret)
	api := app.Group("/api")
	NewConversationController(conv, auth, nil).RegisterRoutes(api)
	NewBillingController(billing, auth).RegisterRoutes(api)
	return app
}

func bearer(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func do(t *testing.T, app *fiber.App, method, target, auth, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestConversationRoutesRequireToken(t *testing.T) {
	conv := &stubConversationService{}
	app := newTestApp(conv, &stubBillingService{})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		resp, body := do(t, app, method, "/api/conversation", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, method)
		assert.Equal(t, "Unauthorized", body["message"])
	}
	assert.Empty(t, conv.lastUser)
}

func TestSendConversation(t *testing.T) {
	conv := &stubConversationService{}
	app := newTestApp(conv, &stubBillingService{})

	resp, body := do(t, app, http.MethodPost, "/api/conversation", bearer(t, jwt.MapClaims{"user_id": "user_a"}),
		`{"messages":[{"role":"user","content":"How fast does an elephant run?"}],"title":"Elephants"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "7f3c2a8e-0000-4000-8000-000000000001", body["sessionId"])
	assert.Equal(t, map[string]interface{}{"role": "assistant", "content": "Up to 40 km/h."}, body["message"])

	assert.Equal(t, "user_a", conv.lastUser)
	require.Len(t, conv.lastSend.Messages, 1)
	assert.Equal(t, "Elephants", conv.lastSend.Title)
}

func TestSendConversationErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "forbidden", err: dto.NewForbiddenError(), status: http.StatusForbidden, message: dto.MessageFreeTrialExpired},
		{name: "rate limited", err: dto.NewRateLimitedError(nil), status: http.StatusTooManyRequests, message: dto.MessageSlowDown},
		{name: "internal detail hidden", err: dto.NewUnknownError(assert.AnError), status: http.StatusInternalServerError, message: "Internal Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &stubConversationService{sendErr: tt.err}
			app := newTestApp(conv, &stubBillingService{})

			resp, body := do(t, app, http.MethodPost, "/api/conversation", bearer(t, jwt.MapClaims{"user_id": "user_a"}),
				`{"messages":[{"role":"user","content":"hi"}]}`)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestSendConversationRejectsMalformedBody(t *testing.T) {
	conv := &stubConversationService{}
	app := newTestApp(conv, &stubBillingService{})

	resp, _ := do(t, app, http.MethodPost, "/api/conversation", bearer(t, jwt.MapClaims{"user_id": "user_a"}), `{"messages":`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, conv.lastSend)
}

func TestGetConversationListsOrLoadsHistory(t *testing.T) {
	conv := &stubConversationService{}
	app := newTestApp(conv, &stubBillingService{})
	auth := bearer(t, jwt.MapClaims{"user_id": "user_a"})

	resp, body := do(t, app, http.MethodGet, "/api/conversation", auth, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "sessions")
	assert.Empty(t, conv.lastSession)

	resp, body = do(t, app, http.MethodGet, "/api/conversation?sessionId=abc", auth, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "messages")
	assert.Equal(t, "abc", conv.lastSession)

	conv.historyErr = dto.NewNotFoundError("Not Found")
	resp, body = do(t, app, http.MethodGet, "/api/conversation?sessionId=abc", auth, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["message"])
}

func TestDeleteConversation(t *testing.T) {
	conv := &stubConversationService{}
	app := newTestApp(conv, &stubBillingService{})

	resp, _ := do(t, app, http.MethodDelete, "/api/conversation?sessionId=abc", bearer(t, jwt.MapClaims{"user_id": "user_a"}), "")

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "abc", conv.lastSession)
}

func TestConversationUsage(t *testing.T) {
	app := newTestApp(&stubConversationService{}, &stubBillingService{})

	resp, body := do(t, app, http.MethodGet, "/api/conversation/usage", bearer(t, jwt.MapClaims{"user_id": "user_a"}), "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["used"])
	assert.Equal(t, float64(5), body["limit"])
}

func TestBillingCheckoutPassesEmailClaim(t *testing.T) {
	billing := &stubBillingService{}
	app := newTestApp(&stubConversationService{}, billing)

	resp, body := do(t, app, http.MethodPost, "/api/billing/checkout",
		bearer(t, jwt.MapClaims{"user_id": "user_a", "email": "ada@example.com"}), "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "user_a", billing.lastUser)
	assert.Equal(t, "ada@example.com", billing.lastEmail)
}

func TestBillingWebhookNeedsNoToken(t *testing.T) {
	billing := &stubBillingService{}
	app := newTestApp(&stubConversationService{}, billing)

	resp, _ := do(t, app, http.MethodPost, "/api/billing/webhook", "",
		`{"order_id":"genius-1","status_code":"200","gross_amount":"200000.00","signature_key":"sig","custom_field1":"user_a"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, billing.lastWebhook)
	assert.Equal(t, "genius-1", billing.lastWebhook.OrderId)
	assert.Equal(t, "user_a", billing.lastWebhook.CustomField1)

	billing.webhookErr = dto.NewInvalidInputError("Invalid signature")
	resp, body := do(t, app, http.MethodPost, "/api/billing/webhook", "", `{"order_id":"genius-1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid signature", body["message"])
}

func TestBillingStatus(t *testing.T) {
	billing := &stubBillingService{}
	app := newTestApp(&stubConversationService{}, billing)

	resp, body := do(t, app, http.MethodGet, "/api/billing/status", bearer(t, jwt.MapClaims{"user_id": "user_a"}), "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["subscribed"])
}
