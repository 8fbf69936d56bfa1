package server

import (
	"log/slog"

	"forum/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to /ws. A valid token in the
// "token" query parameter tags the connection with its username; the feed
// itself is public.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if token := c.Query("token"); token != "" {
		if username, err := s.authService.Authenticate(token); err == nil {
			c.Locals(middleware.LocalUsername, username)
		}
	}
	return c.Next()
}

// WebsocketHandler streams feed events to the connection until it closes.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		username, _ := conn.Locals(middleware.LocalUsername).(string)

		client, err := s.hub.Register(username, conn)
		if err != nil {
			middleware.Logger.Warn("websocket rejected", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
