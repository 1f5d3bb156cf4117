package analytics

import (
	"context"
	"fmt"
	"sync"

	"canvasthink-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Queue publishes messages to one watermill topic from a single goroutine,
// in the order they were enqueued.
type Queue struct {
	publisher message.Publisher
	topic     string
	log       logger.ILogger

	// OnDrop is called for every message dropped on a full buffer.
	OnDrop func()

	ch        chan *message.Message
	done      chan struct{}
	closeOnce sync.Once
}

func NewQueue(publisher message.Publisher, topic string, buffer int, log logger.ILogger) *Queue {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	q := &Queue{
		publisher: publisher,
		topic:     topic,
		log:       log,
		ch:        make(chan *message.Message, buffer),
		done:      make(chan struct{}),
	}
	go q.pump()
	return q
}

func (q *Queue) Topic() string { return q.topic }

// Enqueue never blocks: when the buffer is full the message is dropped and
// false is returned.
func (q *Queue) Enqueue(msg *message.Message) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		q.log.Warn(moduleName, "Queue buffer full, dropping message", map[string]interface{}{
			"topic":      q.topic,
			"message_id": msg.UUID,
		})
		if q.OnDrop != nil {
			q.OnDrop()
		}
		return false
	}
}

func (q *Queue) pump() {
	defer close(q.done)
	for msg := range q.ch {
		if err := q.publisher.Publish(q.topic, msg); err != nil {
			q.log.Error(moduleName, "Failed to publish to queue", map[string]interface{}{
				"topic":      q.topic,
				"message_id": msg.UUID,
				"error":      err.Error(),
			})
		}
	}
}

// Close stops accepting messages and waits for the pump to drain the
// buffer, or for ctx to end. Enqueue must not be called afterwards.
func (q *Queue) Close(ctx context.Context) error {
	q.closeOnce.Do(func() {
		close(q.ch)
	})
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue %s not drained: %w", q.topic, ctx.Err())
	}
}
