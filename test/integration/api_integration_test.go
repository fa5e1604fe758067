package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"genius-be/internal/bootstrap"
	"genius-be/internal/config"
	"genius-be/internal/repository/unitofwork"
	"genius-be/internal/server"
	"genius-be/pkg/chat/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*fiber.App, *session.Store, string) {
	t.Helper()
	db := openPostgres(t)

	secret := "integration-secret"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_FILE_PATH", t.TempDir()+"/app.log")
	cfg := config.Load()

	container := bootstrap.NewContainer(db, cfg)
	t.Cleanup(container.Close)

	srv := server.New(cfg, container)
	return srv.GetApp(), session.NewStore(unitofwork.NewRepositoryFactory(db)), secret
}

func authHeader(t *testing.T, secret, userId string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userId}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func getJSON(t *testing.T, app *fiber.App, path, auth string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestConversationEndpointsOverPostgres(t *testing.T) {
	app, store, secret := newTestServer(t)
	user := testUser(t)

	_, _, err := store.StartSession(context.Background(), user, "Elephants", session.Turn{
		UserContent:      "How fast does an elephant run?",
		AssistantContent: "Up to 40 km/h.",
	})
	require.NoError(t, err)

	status, _ := getJSON(t, app, "/api/conversation", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := getJSON(t, app, "/api/conversation", authHeader(t, secret, user))
	require.Equal(t, http.StatusOK, status)
	sessions, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	require.Len(t, sessions, 1)
	first := sessions[0].(map[string]interface{})
	assert.Equal(t, "Elephants", first["title"])
	assert.Equal(t, map[string]interface{}{"messages": float64(2)}, first["_count"])

	status, body = getJSON(t, app, "/api/conversation?sessionId="+first["id"].(string), authHeader(t, secret, testUser(t)))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body["message"])

	status, body = getJSON(t, app, "/api/conversation/usage", authHeader(t, secret, user))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["used"])
}

func TestOperationalEndpoints(t *testing.T) {
	app, _, _ := newTestServer(t)

	status, body := getJSON(t, app, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}
