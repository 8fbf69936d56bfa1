package server

import (
	"context"
	"log/slog"

	"forum/internal/middleware"
	"forum/internal/notifications"
	"forum/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventPostCreated    = "post_created"
	EventPostLiked      = "post_liked"
	EventCommentCreated = "comment_created"
)

// publishBroadcastEvent pushes an event to every websocket client. With Redis
// wired the event goes through the shared channel, which also feeds this
// replica's hub; otherwise it is delivered locally.
func (s *Server) publishBroadcastEvent(eventType string, payload any) {
	message, err := notifications.Event{Type: eventType, Payload: payload}.Encode()
	if err != nil {
		middleware.Logger.Error("failed to encode event", slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEvents.WithLabelValues(eventType).Inc()

	if s.notifier.Enabled() {
		err := s.notifier.PublishBroadcast(context.Background(), message)
		if err == nil {
			return
		}
		middleware.Logger.Warn("failed to publish event, delivering locally",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
	s.hub.BroadcastAll(message)
}
