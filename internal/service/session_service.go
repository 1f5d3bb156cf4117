package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canvasthink-be/internal/config"
	"canvasthink-be/internal/dto"
	"canvasthink-be/internal/metrics"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/pkg/serverutils"
	"canvasthink-be/internal/repository/memory"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/emotion"
	"canvasthink-be/pkg/events"
	"canvasthink-be/pkg/tracking"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("tracking session not found")

const stopTimeout = 5 * time.Second

// Delivery pushes events to the browser tabs of a session. Implemented by
// the websocket hub.
type Delivery interface {
	Send(sessionID string, event events.Event)
}

type ISessionService interface {
	Start(ctx context.Context, req dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Dispatch(sessionID string, evs []browser.Event) (*dto.EventBatchResponse, error)
	RecordPageView(sessionID, path string) error
	Summary(sessionID string) (*dto.SummaryResponse, error)
	Emotion(sessionID string) (*dto.EmotionResponse, error)
	SetEmotion(sessionID string, req dto.SetEmotionRequest) (*dto.EmotionResponse, error)
	End(ctx context.Context, sessionID string) error
	Shutdown(ctx context.Context)
}

type SessionService struct {
	sessions  *memory.SessionRepository
	scheduler clock.Scheduler
	sink      behavior.Sink
	store     emotion.ContextStore
	delivery  Delivery
	publisher IPublisherService
	metrics   *metrics.Metrics
	tracking  config.TrackingConfig
	auth      config.AuthConfig
	logger    logger.ILogger
}

func NewSessionService(
	scheduler clock.Scheduler,
	sink behavior.Sink,
	store emotion.ContextStore,
	delivery Delivery,
	publisher IPublisherService,
	m *metrics.Metrics,
	cfg *config.Config,
	log logger.ILogger,
) *SessionService {
	s := &SessionService{
		scheduler: scheduler,
		sink:      sink,
		store:     store,
		delivery:  delivery,
		publisher: publisher,
		metrics:   m,
		tracking:  cfg.Tracking,
		auth:      cfg.Auth,
		logger:    log,
	}
	s.sessions = memory.NewSessionRepository(cfg.Tracking.SessionTTL, s.evicted)
	return s
}

// NewSessionID returns ids of the form ct_<unix ms>_<8 hex chars>.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("ct_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

func capabilities(names []string) []browser.Capability {
	if names == nil {
		return []browser.Capability{browser.CapabilityHistory, browser.CapabilityIntersection}
	}
	out := make([]browser.Capability, 0, len(names))
	for _, n := range names {
		out = append(out, browser.Capability(n))
	}
	return out
}

func (s *SessionService) Start(ctx context.Context, req dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	sessionID := NewSessionID(s.scheduler.Now())
	visitorID := s.visitor(req.VisitorToken)

	// Tokens are checked against wall time, not the session clock.
	issued := time.Now()
	token, err := serverutils.IssueSessionToken(s.auth.JWTSecret, sessionID, visitorID, s.auth.TokenTTL, issued)
	if err != nil {
		return nil, err
	}
	visitorToken, err := serverutils.IssueVisitorToken(s.auth.JWTSecret, visitorID, s.tracking.ContextTTL, issued)
	if err != nil {
		return nil, err
	}

	p := tracking.New(tracking.Config{
		SessionID:          sessionID,
		VisitorID:          visitorID,
		Page:               browser.Page{Path: req.Path, Referrer: req.Referrer, UserAgent: req.UserAgent},
		Capabilities:       capabilities(req.Capabilities),
		ScrollSettle:       s.tracking.ScrollSettle,
		TrajectoryInterval: s.tracking.TrajectoryInterval,
		PersistInterval:    s.tracking.PersistInterval,
	}, s.scheduler, s.sink, s.store, s.logger)
	s.wire(p)

	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	s.sessions.Save(p)
	s.metrics.ActiveSessions.Inc()

	s.logger.Info("SessionService", "Tracking session started", map[string]interface{}{
		"session_id": sessionID,
		"visitor_id": visitorID,
		"path":       req.Path,
	})
	return &dto.StartSessionResponse{
		SessionID:    sessionID,
		VisitorID:    visitorID,
		Token:        token,
		VisitorToken: visitorToken,
	}, nil
}

// visitor resolves a signed visitor token. Anything else starts a new
// visitor, so a caller can only load contexts it was issued.
func (s *SessionService) visitor(token string) string {
	if token == "" {
		return uuid.NewString()
	}
	id, err := serverutils.ParseVisitorToken(s.auth.JWTSecret, token)
	if err != nil {
		s.logger.Warn("SessionService", "Rejected visitor token, starting a new visitor", map[string]interface{}{"error": err.Error()})
		return uuid.NewString()
	}
	return id
}

// wire forwards the pipeline's events to metrics, the browser and the
// outbound queue. Every hook runs under the pipeline lock and must not block.
func (s *SessionService) wire(p *tracking.Pipeline) {
	sessionID := p.SessionID()

	p.OnInteraction(func(ev behavior.InteractionOccurred) {
		s.metrics.Interactions.WithLabelValues(string(ev.Record.Kind)).Inc()
		s.send(sessionID, analytics.Envelope{SessionID: sessionID, Record: ev.Record})
	})
	p.OnStateChanged(func(ev emotion.StateChanged) {
		s.metrics.EmotionalStates.WithLabelValues(ev.Label.String()).Inc()
		s.send(sessionID, ev)
		s.publish(ev)
	})
	p.OnAdaptation(func(ev emotion.AdaptationAvailable) {
		s.metrics.Adaptations.WithLabelValues(ev.Label.String()).Inc()
		s.send(sessionID, ev)
		s.publish(ev)
	})
	p.OnPreferences(func(ev emotion.PreferencesApplied) {
		s.send(sessionID, ev)
		s.publish(ev)
	})
}

func (s *SessionService) send(sessionID string, ev events.Event) {
	if s.delivery != nil {
		s.delivery.Send(sessionID, ev)
	}
}

func (s *SessionService) publish(ev events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

func (s *SessionService) get(sessionID string) (*tracking.Pipeline, error) {
	p, ok := s.sessions.Get(sessionID)
	if !ok || p.Stopped() {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

// Dispatch feeds browser events to the session in order.
func (s *SessionService) Dispatch(sessionID string, evs []browser.Event) (*dto.EventBatchResponse, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	handled, err := p.DispatchBatch(evs)
	if errors.Is(err, tracking.ErrStopped) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dto.EventBatchResponse{Accepted: len(evs), Handled: handled}, nil
}

func (s *SessionService) RecordPageView(sessionID, path string) error {
	p, err := s.get(sessionID)
	if err != nil {
		return err
	}
	if err := p.RecordPageView(path); errors.Is(err, tracking.ErrStopped) {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SessionService) Summary(sessionID string) (*dto.SummaryResponse, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{
		Summary:          p.Summary(),
		VisitorID:        p.VisitorID(),
		EmotionalJourney: p.Journey(),
	}, nil
}

func (s *SessionService) Emotion(sessionID string) (*dto.EmotionResponse, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return emotionResponse(p), nil
}

func emotionResponse(p *tracking.Pipeline) *dto.EmotionResponse {
	resp := &dto.EmotionResponse{Insights: p.Insights()}
	if f, ok := p.Forecast(); ok {
		resp.Forecast = &f
	}
	return resp
}

// SetEmotion is a manual override. A zero confidence uses the default.
func (s *SessionService) SetEmotion(sessionID string, req dto.SetEmotionRequest) (*dto.EmotionResponse, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	label, err := emotion.ParseLabel(req.State)
	if err != nil {
		return nil, err
	}
	if err := p.SetState(label, req.Confidence); err != nil {
		if errors.Is(err, tracking.ErrStopped) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return emotionResponse(p), nil
}

// End stops the session and persists its emotional context.
func (s *SessionService) End(ctx context.Context, sessionID string) error {
	p, ok := s.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	err := s.stop(ctx, p)
	s.sessions.Delete(sessionID)
	return err
}

func (s *SessionService) evicted(p *tracking.Pipeline) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.stop(ctx, p); err != nil {
		s.logger.Warn("SessionService", "Failed to persist context of evicted session", map[string]interface{}{
			"session_id": p.SessionID(),
			"error":      err.Error(),
		})
	}
}

// stop is idempotent per pipeline: the gauge only moves on the first call.
func (s *SessionService) stop(ctx context.Context, p *tracking.Pipeline) error {
	first, err := p.StopOnce(ctx)
	if first {
		s.metrics.ActiveSessions.Dec()
		s.logger.Info("SessionService", "Tracking session ended", map[string]interface{}{
			"session_id": p.SessionID(),
		})
	}
	return err
}

// Shutdown ends every live session.
func (s *SessionService) Shutdown(ctx context.Context) {
	for _, p := range s.sessions.All() {
		if err := s.stop(ctx, p); err != nil {
			s.logger.Warn("SessionService", "Failed to persist context on shutdown", map[string]interface{}{
				"session_id": p.SessionID(),
				"error":      err.Error(),
			})
		}
		s.sessions.Delete(p.SessionID())
	}
}

func (s *SessionService) ActiveSessions() int {
	return s.sessions.Count()
}
