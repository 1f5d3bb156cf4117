// Package tracking wires one browsing session: the event dispatcher, the
// interaction recorder and the emotion classifier behind a single lock.
package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/emotion"
)

const moduleName = "TrackingPipeline"

var ErrStopped = errors.New("tracking pipeline stopped")

type Config struct {
	SessionID    string
	VisitorID    string
	Page         browser.Page
	Capabilities []browser.Capability

	ScrollSettle       time.Duration
	TrajectoryInterval time.Duration
	PersistInterval    time.Duration
}

// Pipeline is the event loop of one session. Every entry point and every
// timer callback runs under mu, so the recorder and the classifier never see
// concurrent calls.
type Pipeline struct {
	mu      sync.Mutex
	started bool
	stopped bool

	cfg        Config
	dispatcher *browser.Dispatcher
	recorder   *behavior.Recorder
	classifier *emotion.Classifier
	log        logger.ILogger
}

func New(cfg Config, scheduler clock.Scheduler, sink behavior.Sink, store emotion.ContextStore, log logger.ILogger) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		dispatcher: browser.NewDispatcher(cfg.Capabilities...),
		log:        log,
	}
	serial := &serialScheduler{Scheduler: scheduler, p: p}

	var opts []behavior.Option
	if cfg.ScrollSettle > 0 {
		opts = append(opts, behavior.WithScrollSettle(cfg.ScrollSettle))
	}
	p.recorder = behavior.NewRecorder(cfg.SessionID, serial, sink, log, opts...)
	p.classifier = emotion.NewClassifier(emotion.Config{
		SessionID:          cfg.SessionID,
		VisitorID:          cfg.VisitorID,
		TrajectoryInterval: cfg.TrajectoryInterval,
		PersistInterval:    cfg.PersistInterval,
	}, serial, store, log)

	p.recorder.OnInteraction(p.classifier.Observe)
	p.classifier.Attach(p.dispatcher)
	return p
}

// Subscriptions must be made before Start to see the initial page view and
// the restored preferences.
func (p *Pipeline) OnInteraction(fn func(behavior.InteractionOccurred)) func() {
	return p.recorder.OnInteraction(fn)
}

func (p *Pipeline) OnStateChanged(fn func(emotion.StateChanged)) func() {
	return p.classifier.OnStateChanged(fn)
}

func (p *Pipeline) OnAdaptation(fn func(emotion.AdaptationAvailable)) func() {
	return p.classifier.OnAdaptation(fn)
}

func (p *Pipeline) OnPreferences(fn func(emotion.PreferencesApplied)) func() {
	return p.classifier.OnPreferences(fn)
}

// Start restores the emotional context, starts the timers and records the
// initial page view.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	if p.started {
		return nil
	}
	p.started = true

	p.classifier.Init(ctx)
	p.recorder.Init(p.dispatcher, p.cfg.Page)
	return nil
}

func (p *Pipeline) SessionID() string { return p.cfg.SessionID }

func (p *Pipeline) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
func (p *Pipeline) VisitorID() string { return p.cfg.VisitorID }

// Dispatch delivers one browser event and reports how many handlers ran.
func (p *Pipeline) Dispatch(ev browser.Event) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0, ErrStopped
	}
	return p.dispatcher.Dispatch(ev), nil
}

// DispatchBatch delivers events in order.
func (p *Pipeline) DispatchBatch(evs []browser.Event) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0, ErrStopped
	}
	handled := 0
	for _, ev := range evs {
		handled += p.dispatcher.Dispatch(ev)
	}
	return handled, nil
}

func (p *Pipeline) RecordPageView(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	p.recorder.RecordPageView(path)
	return nil
}

func (p *Pipeline) SetState(label emotion.Label, confidence float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	return p.classifier.SetState(label, confidence)
}

func (p *Pipeline) Summary() behavior.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder.Summary()
}

func (p *Pipeline) Records() []behavior.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder.Records()
}

// Journey returns the session's emotional samples, oldest first.
func (p *Pipeline) Journey() []emotion.Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifier.History()
}

func (p *Pipeline) Insights() emotion.Insights {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifier.Insights()
}

type Forecast struct {
	Prediction emotion.Prediction `json:"prediction"`
	Trajectory emotion.Trajectory `json:"trajectory"`
}

func (p *Pipeline) Forecast() (Forecast, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pred, traj, ok := p.classifier.Prediction()
	return Forecast{Prediction: pred, Trajectory: traj}, ok
}

func (p *Pipeline) Snapshot() emotion.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.classifier.Snapshot()
}

// Stop cancels every timer and persists the emotional context once. Calls
// after the first return nil.
func (p *Pipeline) Stop(ctx context.Context) error {
	_, err := p.StopOnce(ctx)
	return err
}

// StopOnce is Stop that also reports whether this call did the stopping.
func (p *Pipeline) StopOnce(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false, nil
	}
	p.stopped = true
	p.recorder.Close()
	if !p.started {
		return true, nil
	}

	err := p.classifier.Close(ctx)
	p.log.Info(moduleName, "Session pipeline stopped", map[string]interface{}{
		"session_id": p.cfg.SessionID,
		"visitor_id": p.cfg.VisitorID,
	})
	return true, err
}

// serialScheduler runs timer callbacks under the pipeline lock and drops
// them once the pipeline has stopped.
type serialScheduler struct {
	clock.Scheduler
	p *Pipeline
}

func (s *serialScheduler) AfterFunc(d time.Duration, f func()) clock.Timer {
	return s.Scheduler.AfterFunc(d, s.wrap(f))
}

func (s *serialScheduler) Every(d time.Duration, f func()) clock.Timer {
	return s.Scheduler.Every(d, s.wrap(f))
}

func (s *serialScheduler) wrap(f func()) func() {
	return func() {
		s.p.mu.Lock()
		defer s.p.mu.Unlock()
		if s.p.stopped {
			return
		}
		f()
	}
}
