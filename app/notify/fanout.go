package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
)

const DefaultBatchSize = 10

// FanOut announces new items of a source, one message per item.
type FanOut struct {
	dispatcher Dispatcher
	batchSize  int
}

func NewFanOut(dispatcher Dispatcher) *FanOut {
	return &FanOut{dispatcher: dispatcher, batchSize: DefaultBatchSize}
}

// Notify sends items in batches; sends within a batch run concurrently and
// a failed send never cancels its siblings. It returns the number of
// messages delivered; undelivered ones are not counted.
func (f *FanOut) Notify(ctx context.Context, source database.Source, items []feed.NormalizedItem) int {
	if len(items) == 0 {
		return 0
	}

	topic := Topic(source.Category, source.Name)
	var sent atomic.Int64

	for start := 0; start < len(items); start += f.batchSize {
		end := min(start+f.batchSize, len(items))

		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func() {
				defer wg.Done()

				msg := NewMessage(topic, source, item)
				err := f.dispatcher.Send(ctx, msg)
				if errors.Is(err, ErrNotDelivered) {
					slog.Info("Notification not delivered", "source", source.Name, "topic", topic, "id", item.DocID, "reason", err)
					return
				}
				if err != nil {
					slog.Warn("Failed to send notification", "source", source.Name, "topic", topic, "id", item.DocID, "error", err)
					return
				}
				sent.Add(1)
			}()
		}
		wg.Wait()
	}

	return int(sent.Load())
}

// NewMessage builds the notification for one item: the source name as title
// and the item title as body.
func NewMessage(topic string, source database.Source, item feed.NormalizedItem) Message {
	return Message{
		Topic:    topic,
		Title:    source.Name,
		Body:     item.Title,
		ImageURL: item.Thumbnail,
		Data: map[string]string{
			"sourceId": source.ID,
			"docId":    item.DocID,
			"link":     item.Link,
			"category": source.Category,
		},
	}
}
