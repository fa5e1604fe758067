package handler

import (
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/serverutils"
	internalWS "genius-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RealtimeHandler upgrades authenticated requests to a websocket that
// receives session.updated and subscription.updated pushes.
type RealtimeHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewRealtimeHandler(hub *internalWS.Hub, log logger.ILogger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: log}
}

func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	userID := serverutils.UserId(c)
	if userID == "" {
		return fiber.ErrUnauthorized
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID)
			h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes expects auth to accept the token from the query string,
// since browsers cannot set headers on websocket upgrades.
func (h *RealtimeHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/ws", auth, h.ServeWs)
}
