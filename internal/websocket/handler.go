package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection for sessionID and blocks until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string, onMessage func([]byte)) {
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
		OnMessage: onMessage,
	}
	hub.register <- client

	go client.writePump()
	client.readPump()
}
