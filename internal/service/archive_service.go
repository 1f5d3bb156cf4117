package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"canvasthink-be/internal/dto"
	"canvasthink-be/internal/model"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/repository"
	"canvasthink-be/internal/repository/specification"
	"canvasthink-be/pkg/events"
	pktNats "canvasthink-be/pkg/nats"

	"gorm.io/datatypes"
)

const maxHistory = 500

// IArchiveReader serves archived sessions over HTTP.
type IArchiveReader interface {
	History(ctx context.Context, sessionID string, q dto.ArchiveQuery) (*dto.ArchiveResponse, error)
}

// EventSubscriber is a durable subscription on the broker.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// ArchiveService stores broker events in Postgres.
type ArchiveService struct {
	repo       repository.ArchiveRepository
	subscriber EventSubscriber
	durable    string
	logger     logger.ILogger
}

func NewArchiveService(repo repository.ArchiveRepository, sub EventSubscriber, durable string, log logger.ILogger) *ArchiveService {
	return &ArchiveService{repo: repo, subscriber: sub, durable: durable, logger: log}
}

func (s *ArchiveService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", s.durable, s.handleEvent); err != nil {
		return fmt.Errorf("failed to start archive subscriber: %w", err)
	}
	s.logger.Info("ArchiveService", "Archiver started", map[string]interface{}{"durable": s.durable})
	return nil
}

// handleEvent returns an error only for storage failures, so the broker
// redelivers; events it cannot interpret are skipped.
func (s *ArchiveService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	sessionID := str(payload["session_id"])
	if sessionID == "" {
		s.logger.Warn("ArchiveService", "Event without session id skipped", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	var err error
	switch event.EventType() {
	case events.TypeInteraction:
		err = s.archiveInteraction(ctx, sessionID, event)
	case events.TypeStateChanged:
		err = s.repo.CreateSample(ctx, &model.EmotionalSample{
			SessionID:     sessionID,
			State:         str(payload["state"]),
			PreviousState: str(payload["previous_state"]),
			Confidence:    num(payload["confidence"]),
			Path:          str(payload["path"]),
			OccurredAt:    event.Timestamp(),
		})
	case events.TypeAdaptation:
		err = s.repo.CreateAdaptation(ctx, &model.AdaptationLog{
			SessionID:  sessionID,
			State:      str(payload["state"]),
			Classes:    datatypes.JSONSlice[string](strs(payload["classes"])),
			Confidence: num(payload["confidence"]),
			OccurredAt: event.Timestamp(),
		})
	default:
		return nil
	}
	if err != nil {
		s.logger.Error("ArchiveService", "Failed to archive event", map[string]interface{}{
			"type":       event.EventType(),
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("failed to archive %s: %w", event.EventType(), err)
	}
	return nil
}

func (s *ArchiveService) archiveInteraction(ctx context.Context, sessionID string, event events.Event) error {
	payload := event.Payload()
	data, _ := payload["data"].(map[string]interface{})
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.repo.CreateInteraction(ctx, &model.InteractionRecord{
		SessionID:     sessionID,
		Kind:          str(payload["type"]),
		Path:          str(data["path"]),
		Data:          datatypes.JSON(raw),
		SessionTimeMs: int64(num(payload["sessionTime"])),
		OccurredAt:    event.Timestamp(),
	})
}

// History returns archived interactions and samples of a session, oldest
// first. Kind filters interactions only.
func (s *ArchiveService) History(ctx context.Context, sessionID string, q dto.ArchiveQuery) (*dto.ArchiveResponse, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	var since time.Time
	if q.Since > 0 {
		since = time.UnixMilli(q.Since)
	}
	window := []specification.Specification{
		specification.BySession{SessionID: sessionID},
		specification.OccurredAfter{At: since},
		specification.Chronological{},
		specification.Limit{N: limit},
	}

	interactions, err := s.repo.FindInteractions(ctx, append(window, specification.ByKind{Kind: q.Kind})...)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	samples, err := s.repo.FindSamples(ctx, window...)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}
	return &dto.ArchiveResponse{SessionID: sessionID, Interactions: interactions, Samples: samples}, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func strs(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
