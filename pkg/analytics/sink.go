// Package analytics delivers interaction records to the outbound event queue.
package analytics

import (
	"encoding/json"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	moduleName = "AnalyticsSink"

	DefaultTopic  = "behavioral.interactions"
	DefaultBuffer = 1024
)

// Envelope is the queued form of a record.
type Envelope struct {
	SessionID string          `json:"session_id"`
	Record    behavior.Record `json:"record"`
}

func (e Envelope) EventType() string    { return events.TypeInteraction }
func (e Envelope) Timestamp() time.Time { return e.Record.Timestamp }
func (e Envelope) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"type":        string(e.Record.Kind),
		"data":        e.Record.Payload,
		"sessionTime": e.Record.SessionElapsedMs,
		"timestamp":   e.Record.Timestamp.UnixMilli(),
	}
}

// QueueSink hands every record to an ordered Queue as an Envelope.
type QueueSink struct {
	*Queue
}

func NewQueueSink(publisher message.Publisher, topic string, buffer int, log logger.ILogger) *QueueSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &QueueSink{Queue: NewQueue(publisher, topic, buffer, log)}
}

func (s *QueueSink) Deliver(sessionID string, record behavior.Record) {
	payload, err := json.Marshal(Envelope{SessionID: sessionID, Record: record})
	if err != nil {
		s.log.Error(moduleName, "Failed to marshal interaction record", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", sessionID)
	msg.Metadata.Set("kind", string(record.Kind))
	s.Enqueue(msg)
}

// LogSink writes every record to the logger at debug level.
type LogSink struct {
	log logger.ILogger
}

func NewLogSink(log logger.ILogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(sessionID string, record behavior.Record) {
	s.log.Debug(moduleName, "Behavioral interaction", map[string]interface{}{
		"session_id": sessionID,
		"kind":       string(record.Kind),
		"elapsed_ms": record.SessionElapsedMs,
		"data":       record.Payload,
	})
}

// FanOut delivers to every sink in order.
type FanOut []behavior.Sink

func (f FanOut) Deliver(sessionID string, record behavior.Record) {
	for _, s := range f {
		s.Deliver(sessionID, record.Clone())
	}
}
