package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, userID string) {
	client := newClient(hub, c, userID)
	hub.register <- client

	go client.writePump()
	client.readPump()
}
