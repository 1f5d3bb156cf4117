package emotion

import (
	"context"
	"fmt"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/events"
)

const (
	moduleName = "EmotionClassifier"

	DefaultTrajectoryInterval = 5 * time.Second
	DefaultPersistInterval    = 30 * time.Second
	DefaultOverrideConfidence = 0.9

	windowSize = 10
)

type Config struct {
	SessionID          string
	VisitorID          string
	TrajectoryInterval time.Duration
	PersistInterval    time.Duration
	// PersistTimeout bounds each periodic save.
	PersistTimeout time.Duration
}

// Classifier keeps the emotional state of one session. It is not safe for
// concurrent use: the caller serializes Observe, gesture events and timer
// callbacks.
type Classifier struct {
	cfg       Config
	scheduler clock.Scheduler
	store     ContextStore
	log       logger.ILogger

	initialized bool
	closed      bool
	timers      []clock.Timer

	window  []behavior.Record
	path    string
	active  map[string]bool
	gesture gestureTracker

	history    history
	prior      []Sample
	baseline   *Snapshot
	settings   map[string]string
	trajectory Trajectory
	prediction *Prediction
	prefetched map[Label]Adaptation

	stateChanged events.Topic[StateChanged]
	adaptations  events.Topic[AdaptationAvailable]
	preferences  events.Topic[PreferencesApplied]
}

func NewClassifier(cfg Config, scheduler clock.Scheduler, store ContextStore, log logger.ILogger) *Classifier {
	if cfg.TrajectoryInterval <= 0 {
		cfg.TrajectoryInterval = DefaultTrajectoryInterval
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = DefaultPersistInterval
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &Classifier{
		cfg:        cfg,
		scheduler:  scheduler,
		store:      store,
		log:        log,
		active:     make(map[string]bool),
		settings:   make(map[string]string),
		prefetched: make(map[Label]Adaptation),
	}
}

func (c *Classifier) OnStateChanged(fn func(StateChanged)) (unsubscribe func()) {
	return c.stateChanged.Subscribe(fn)
}

func (c *Classifier) OnAdaptation(fn func(AdaptationAvailable)) (unsubscribe func()) {
	return c.adaptations.Subscribe(fn)
}

func (c *Classifier) OnPreferences(fn func(PreferencesApplied)) (unsubscribe func()) {
	return c.preferences.Subscribe(fn)
}

// Init restores the persisted context and starts the trajectory and persist
// timers. A second call is a no-op.
func (c *Classifier) Init(ctx context.Context) {
	if c.initialized {
		return
	}
	c.initialized = true

	c.restore(ctx)

	c.timers = append(c.timers,
		c.scheduler.Every(c.cfg.TrajectoryInterval, c.analyzeTrajectory),
		c.scheduler.Every(c.cfg.PersistInterval, c.persistPeriodically),
	)

	c.log.Info(moduleName, "Emotional recognition initialized", map[string]interface{}{
		"session_id": c.cfg.SessionID,
		"visitor_id": c.cfg.VisitorID,
		"restored":   c.baseline != nil,
	})
}

// Close stops the timers and persists once.
func (c *Classifier) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	return c.Persist(ctx)
}

func (c *Classifier) persistPeriodically() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
	defer cancel()
	if err := c.Persist(ctx); err != nil {
		c.log.Error(moduleName, "Periodic persist failed", map[string]interface{}{
			"visitor_id": c.cfg.VisitorID,
			"error":      err.Error(),
		})
	}
}

// Observe feeds one recorded interaction to the heuristics.
func (c *Classifier) Observe(ev behavior.InteractionOccurred) {
	rec := ev.Record.Clone()
	c.window = append(c.window, rec)
	if len(c.window) > windowSize {
		c.window = append([]behavior.Record(nil), c.window[len(c.window)-windowSize:]...)
	}
	if rec.Payload.Path != "" {
		c.path = rec.Payload.Path
	}

	c.applyCandidates(c.correlate(ev))
	c.applyCandidates(analyzeWindow(c.window, rec))
}

func (c *Classifier) applyCandidates(candidates []candidate) {
	for _, cand := range candidates {
		c.UpdateState(cand.label, cand.confidence)
	}
}

// UpdateState appends a sample and broadcasts it. Unknown labels are ignored.
func (c *Classifier) UpdateState(label Label, confidence float64) {
	if !label.Valid() {
		return
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	var previous Label
	if last, ok := c.history.last(); ok {
		previous = last.Label
	}
	now := c.scheduler.Now()
	sample := Sample{
		Label:         label,
		Confidence:    confidence,
		Timestamp:     now,
		Path:          c.path,
		PreviousLabel: previous,
	}
	c.history.append(sample)

	c.stateChanged.Publish(StateChanged{
		SessionID:     c.cfg.SessionID,
		Label:         label,
		Confidence:    confidence,
		PreviousLabel: previous,
		Path:          c.path,
		OccurredAt:    now,
	})

	c.log.Debug(moduleName, "Emotional state updated", map[string]interface{}{
		"session_id": c.cfg.SessionID,
		"state":      label.String(),
		"confidence": confidence,
	})

	if confidence < adaptationBar {
		return
	}
	rules, _ := RulesFor(label)
	c.adaptations.Publish(AdaptationAvailable{
		SessionID:  c.cfg.SessionID,
		Label:      label,
		Adaptation: rules,
		Classes:    rules.Classes(),
		Confidence: confidence,
		OccurredAt: now,
	})
}

// SetState is a manual override.
func (c *Classifier) SetState(label Label, confidence float64) error {
	if !label.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownLabel, uint8(label))
	}
	if confidence <= 0 {
		confidence = DefaultOverrideConfidence
	}
	c.UpdateState(label, confidence)
	return nil
}

// Current returns the most recent sample of this session.
func (c *Classifier) Current() (Sample, bool) {
	return c.history.last()
}

// History returns a copy of this session's samples, oldest first.
func (c *Classifier) History() []Sample {
	return c.history.all()
}

// Prediction returns the last trajectory prediction, if any ran.
func (c *Classifier) Prediction() (Prediction, Trajectory, bool) {
	if c.prediction == nil {
		return Prediction{}, Trajectory{}, false
	}
	return *c.prediction, c.trajectory, true
}

// Prefetched returns the cached adaptation for a predicted label.
func (c *Classifier) Prefetched(label Label) (Adaptation, bool) {
	a, ok := c.prefetched[label]
	return a, ok
}

type Suggestion struct {
	State      Sample     `json:"emotionalState"`
	Adaptation Adaptation `json:"suggestedAdaptations"`
	Confidence float64    `json:"confidence"`
}

type Insights struct {
	Current     *Sample     `json:"currentState"`
	History     []Sample    `json:"history"`
	Suggestions *Suggestion `json:"suggestions"`
}

func (c *Classifier) Insights() Insights {
	out := Insights{History: c.History()}
	current, ok := c.Current()
	if !ok {
		return out
	}
	out.Current = &current
	rules, _ := RulesFor(current.Label)
	out.Suggestions = &Suggestion{State: current, Adaptation: rules, Confidence: current.Confidence}
	return out
}
