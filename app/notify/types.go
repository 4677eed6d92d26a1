package notify

import (
	"context"
	"errors"
)

// ErrNotDelivered reports an expected per-recipient failure such as an
// unknown topic or a topic without subscribers.
var ErrNotDelivered = errors.New("notification not delivered")

// Message is one push notification addressed to a topic.
type Message struct {
	Topic    string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// Dispatcher delivers a single message. Expected per-recipient failures
// wrap ErrNotDelivered.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
