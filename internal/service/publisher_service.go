package service

import (
	"encoding/json"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(event events.Event)
}

// PublisherService puts classifier events on the internal queue without
// blocking on the outbound broker.
type PublisherService struct {
	queue  *analytics.Queue
	logger logger.ILogger
}

func NewPublisherService(queue *analytics.Queue, log logger.ILogger) *PublisherService {
	return &PublisherService{queue: queue, logger: log}
}

func (s *PublisherService) Publish(event events.Event) {
	payload, err := json.Marshal(events.NewMessage(event))
	if err != nil {
		s.logger.Error("PublisherService", "Failed to marshal event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", event.EventType())
	s.queue.Enqueue(msg)
}
