package behavior

import (
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/events"
)

const (
	moduleName = "BehaviorRecorder"

	DefaultScrollSettle = 150 * time.Millisecond
	clickRateWindow     = time.Minute
)

// Sink receives a copy of every record, once, in append order.
type Sink interface {
	Deliver(sessionID string, record Record)
}

type Option func(*Recorder)

// WithScrollSettle sets how long scrolling must stay idle before a
// scroll_session record is emitted.
func WithScrollSettle(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.scrollSettle = d
		}
	}
}

// Recorder owns one session's interaction log. It is not safe for concurrent
// use: the caller serializes event dispatch and timer callbacks.
type Recorder struct {
	sessionID    string
	scheduler    clock.Scheduler
	sink         Sink
	log          logger.ILogger
	scrollSettle time.Duration

	start       time.Time
	initialized bool
	path        string
	records     []Record
	state       SessionState

	scroll   scrollObserver
	hover    hoverObserver
	sections map[string]time.Time

	interactions events.Topic[InteractionOccurred]
}

func NewRecorder(sessionID string, scheduler clock.Scheduler, sink Sink, log logger.ILogger, opts ...Option) *Recorder {
	start := scheduler.Now()
	r := &Recorder{
		sessionID:    sessionID,
		scheduler:    scheduler,
		sink:         sink,
		log:          log,
		scrollSettle: DefaultScrollSettle,
		start:        start,
		state:        NewSessionState(sessionID, start),
		scroll:       newScrollObserver(),
		sections:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recorder) SessionID() string    { return r.sessionID }
func (r *Recorder) StartTime() time.Time { return r.start }

// OnInteraction subscribes fn to every appended record.
func (r *Recorder) OnInteraction(fn func(InteractionOccurred)) (unsubscribe func()) {
	return r.interactions.Subscribe(fn)
}

// Init registers the DOM listeners on src and records the initial page view.
// Calling it again is a no-op.
func (r *Recorder) Init(src browser.Source, page browser.Page) {
	if r.initialized {
		return
	}
	r.initialized = true
	r.path = page.Path

	r.RecordInteraction(KindPageView, Payload{
		Path:      page.Path,
		Referrer:  page.Referrer,
		UserAgent: page.UserAgent,
	})

	if src.Supports(browser.CapabilityHistory) {
		src.On(browser.TypePushState, r.onNavigate)
		src.On(browser.TypeReplaceState, r.onNavigate)
		src.On(browser.TypePopState, r.onNavigate)
	} else {
		r.log.Debug(moduleName, "History API unavailable, navigation not observed", map[string]interface{}{
			"session_id": r.sessionID,
		})
	}

	src.On(browser.TypeScroll, r.onScroll)
	src.On(browser.TypeMouseEnter, r.onMouseEnter)
	src.On(browser.TypeMouseLeave, r.onMouseLeave)
	src.On(browser.TypeClick, r.onClick)
	src.On(browser.TypeFocus, r.onFocus)
	src.On(browser.TypeSubmit, r.onSubmit)
	src.On(browser.TypeInput, r.onInput)
	src.On(browser.TypeProductView, r.onProductView)
	src.On(browser.TypePurchaseIntent, r.onPurchaseIntent)

	if src.Supports(browser.CapabilityIntersection) {
		src.On(browser.TypeIntersection, r.onIntersection)
	} else {
		r.log.Debug(moduleName, "IntersectionObserver unavailable, section time not observed", map[string]interface{}{
			"session_id": r.sessionID,
		})
	}

	r.log.Info(moduleName, "Behavioral tracking initialized", map[string]interface{}{
		"session_id": r.sessionID,
		"path":       page.Path,
	})
}

// RecordPageView registers a client-side route change to path.
func (r *Recorder) RecordPageView(path string) {
	r.path = path
	r.RecordInteraction(KindNavigation, Payload{
		Path:               path,
		Sequence:           r.state.PagesVisited + 1,
		TimeFromPreviousMs: r.sinceLastInteraction().Milliseconds(),
	})
}

// TrackProductView records that the page rendered product productID.
func (r *Recorder) TrackProductView(productID string, attributes map[string]string) {
	if productID == "" {
		return
	}
	r.RecordInteraction(KindProductView, Payload{
		ProductID:  productID,
		Attributes: attributes,
		Path:       r.path,
	})
}

// TrackPurchaseIntent records add_to_cart, add_to_wishlist or checkout_start.
func (r *Recorder) TrackPurchaseIntent(productID, action string) {
	if action == "" {
		return
	}
	r.RecordInteraction(KindPurchaseIntent, Payload{
		ProductID: productID,
		Action:    action,
		Path:      r.path,
	})
}

// RecordInteraction is the single append point of the log.
func (r *Recorder) RecordInteraction(kind Kind, payload Payload) Record {
	now := r.scheduler.Now()
	rec := Record{
		Kind:             kind,
		Payload:          payload.clone(),
		Timestamp:        now,
		SessionElapsedMs: now.Sub(r.start).Milliseconds(),
	}

	r.records = append(r.records, rec)
	r.state.apply(rec)

	r.interactions.Publish(InteractionOccurred{
		SessionID: r.sessionID,
		Record:    rec.Clone(),
		Metrics:   r.metrics(now),
	})

	if r.sink != nil {
		r.sink.Deliver(r.sessionID, rec.Clone())
	}

	return rec.Clone()
}

// Records returns a copy of the log.
func (r *Recorder) Records() []Record {
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Clone()
	}
	return out
}

// State returns a copy of the session aggregates.
func (r *Recorder) State() SessionState {
	return r.state.Clone()
}

// Close cancels the pending scroll-settle timer. Listeners stay registered on
// the source; the source is expected to be discarded with the recorder.
func (r *Recorder) Close() {
	r.scroll.cancel()
}

func (r *Recorder) sinceLastInteraction() time.Duration {
	if len(r.records) == 0 {
		return 0
	}
	return r.scheduler.Now().Sub(r.records[len(r.records)-1].Timestamp)
}

func (r *Recorder) metrics(now time.Time) Metrics {
	m := Metrics{
		HoverCount:        r.state.HoverCount,
		ClickCount:        r.state.ClickCount,
		PagesVisited:      r.state.PagesVisited,
		CategoryPages:     r.state.CategoryPages,
		ProductsViewed:    len(r.state.ProductsViewed),
		WishlistAdditions: r.state.WishlistAdditions,
		ScrollDepth:       float64(r.state.ScrollDepthByPath[r.state.CurrentPath]) / 100,
	}
	if !r.state.LastPageViewAt.IsZero() {
		m.TimeOnPageMs = now.Sub(r.state.LastPageViewAt).Milliseconds()
	}

	cutoff := now.Add(-clickRateWindow)
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if !rec.Timestamp.After(cutoff) {
			break
		}
		if rec.Kind == KindClick {
			m.ClicksPerMinute++
		}
	}
	return m
}

func (r *Recorder) pathOf(ev browser.Event) string {
	if ev.Path != "" {
		return ev.Path
	}
	return r.path
}
