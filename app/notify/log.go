package notify

import (
	"context"
	"log/slog"
)

// LogDispatcher only logs messages. Used when push credentials are not configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(ctx context.Context, msg Message) error {
	slog.Info("Notification", "topic", msg.Topic, "title", msg.Title, "body", msg.Body, "image", msg.ImageURL)
	return nil
}
