package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher is the outbound broker, NATS JetStream in production.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

const (
	forwardAttempts = 3
	forwardTimeout  = 5 * time.Second
)

// consumerService drains the internal queue topics in order and forwards
// each message to the broker. A message that still fails after the retries
// is dropped with an error log so live sessions never stall on the broker.
type consumerService struct {
	subscriber       message.Subscriber
	interactionTopic string
	emotionTopic     string
	broker           EventPublisher
	logger           logger.ILogger
	backoff          time.Duration
}

func NewConsumerService(
	subscriber message.Subscriber,
	interactionTopic string,
	emotionTopic string,
	broker EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:       subscriber,
		interactionTopic: interactionTopic,
		emotionTopic:     emotionTopic,
		broker:           broker,
		logger:           log,
		backoff:          200 * time.Millisecond,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	interactions, err := cs.subscriber.Subscribe(ctx, cs.interactionTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cs.interactionTopic, err)
	}
	emotions, err := cs.subscriber.Subscribe(ctx, cs.emotionTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", cs.emotionTopic, err)
	}

	go cs.drain(ctx, interactions, decodeInteraction)
	go cs.drain(ctx, emotions, decodeEmotion)
	return nil
}

func decodeInteraction(payload []byte) (events.Event, error) {
	var env analytics.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return env, nil
}

func decodeEmotion(payload []byte) (events.Event, error) {
	var msg events.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, err
	}
	return msg.Event(), nil
}

func (cs *consumerService) drain(ctx context.Context, messages <-chan *message.Message, decode func([]byte) (events.Event, error)) {
	for msg := range messages {
		cs.processMessage(ctx, msg, decode)
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message, decode func([]byte) (events.Event, error)) {
	// Malformed messages are acked: redelivery cannot fix them.
	defer msg.Ack()

	event, err := decode(msg.Payload)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if cs.broker == nil {
		cs.logger.Debug("ConsumerService", "No broker configured, event not forwarded", map[string]interface{}{
			"type": event.EventType(),
		})
		return
	}

	for attempt := 1; attempt <= forwardAttempts; attempt++ {
		pubCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
		err = cs.broker.Publish(pubCtx, event)
		cancel()
		if err == nil {
			return
		}
		if attempt < forwardAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(cs.backoff * time.Duration(attempt)):
			}
		}
	}

	cs.logger.Error("ConsumerService", "Dropping event after retries", map[string]interface{}{
		"type":       event.EventType(),
		"message_id": msg.UUID,
		"error":      err.Error(),
	})
}
