package behavior

import (
	"math"
	"time"
	"unicode/utf8"

	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
)

const (
	textSnippetLength = 50
	minSearchLength   = 3
)

var scrollMilestones = []int{25, 50, 75, 90, 100}

type scrollObserver struct {
	maxDepth map[string]int
	reached  map[string]map[int]bool

	active  bool
	started time.Time
	path    string
	timer   clock.Timer
}

func newScrollObserver() scrollObserver {
	return scrollObserver{
		maxDepth: make(map[string]int),
		reached:  make(map[string]map[int]bool),
	}
}

func (s *scrollObserver) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scrollPercent returns the depth in [0,100], or false for a page that
// cannot scroll.
func scrollPercent(ev browser.Event) (int, bool) {
	scrollable := ev.ScrollHeight - ev.ViewportHeight
	if scrollable <= 0 {
		return 0, false
	}
	pct := int(math.Round(ev.ScrollY / scrollable * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// MaxScrollDepth returns the running maximum depth observed on path.
func (r *Recorder) MaxScrollDepth(path string) int {
	return r.scroll.maxDepth[path]
}

func (r *Recorder) onScroll(ev browser.Event) {
	pct, ok := scrollPercent(ev)
	if !ok {
		return
	}
	path := r.pathOf(ev)
	s := &r.scroll

	if pct > s.maxDepth[path] {
		s.maxDepth[path] = pct
	}
	if !s.active {
		s.active = true
		s.started = r.scheduler.Now()
	}
	s.path = path
	s.cancel()
	s.timer = r.scheduler.AfterFunc(r.scrollSettle, r.settleScroll)

	reached := s.reached[path]
	if reached == nil {
		reached = make(map[int]bool, len(scrollMilestones))
		s.reached[path] = reached
	}
	for _, milestone := range scrollMilestones {
		if pct >= milestone && !reached[milestone] {
			reached[milestone] = true
			r.RecordInteraction(KindScrollMilestone, Payload{
				Milestone:     milestone,
				Path:          path,
				TimeToReachMs: r.scheduler.Now().Sub(r.start).Milliseconds(),
			})
		}
	}
}

func (r *Recorder) settleScroll() {
	s := &r.scroll
	s.timer = nil
	if !s.active {
		return
	}
	s.active = false
	r.RecordInteraction(KindScrollSession, Payload{
		MaxDepth:   s.maxDepth[s.path],
		DurationMs: r.scheduler.Now().Sub(s.started).Milliseconds(),
		Path:       s.path,
	})
}

type hoverObserver struct {
	ref     string
	started time.Time
	active  bool
}

func (r *Recorder) onMouseEnter(ev browser.Event) {
	el := ev.Target
	if el == nil || el.TrackHover == "" {
		return
	}
	r.hover = hoverObserver{ref: el.Ref, started: r.scheduler.Now(), active: true}
}

func (r *Recorder) onMouseLeave(ev browser.Event) {
	el := ev.Target
	if el == nil || el.TrackHover == "" || !r.hover.active || el.Ref != r.hover.ref {
		return
	}
	duration := r.scheduler.Now().Sub(r.hover.started)
	r.hover = hoverObserver{}
	r.RecordInteraction(KindHover, Payload{
		Element:     el.TrackHover,
		DurationMs:  duration.Milliseconds(),
		ElementText: truncate(el.Text, textSnippetLength),
		Path:        r.pathOf(ev),
	})
}

func (r *Recorder) onClick(ev browser.Event) {
	p := Payload{
		Coordinates: &Coordinates{X: ev.X, Y: ev.Y},
		Path:        r.pathOf(ev),
	}
	if el := ev.Target; el != nil {
		p.TagName = el.Tag
		p.ClassName = el.ClassName
		p.ElementID = el.ID
		p.TextContent = truncate(el.Text, textSnippetLength)
		p.Href = el.Href
		if el.ProductID != "" {
			p.ProductID = el.ProductID
			p.InteractionType = InteractionProduct
		}
		if el.IsCallToAction() {
			p.InteractionType = InteractionCTA
		}
	}
	r.RecordInteraction(KindClick, p)
}

func (r *Recorder) onFocus(ev browser.Event) {
	el := ev.Target
	if !el.IsFormField() {
		return
	}
	r.RecordInteraction(KindFormFocus, Payload{
		FieldType: el.Type,
		FieldName: el.Name,
		FormID:    el.FormID,
		Path:      r.pathOf(ev),
	})
}

func (r *Recorder) onSubmit(ev browser.Event) {
	form := ev.Target
	if form == nil {
		return
	}
	r.RecordInteraction(KindFormSubmit, Payload{
		FormID:     form.ID,
		FormAction: form.FormAction,
		FieldCount: form.FieldCount,
		Path:       r.pathOf(ev),
	})
}

func (r *Recorder) onInput(ev browser.Event) {
	el := ev.Target
	if el == nil || !el.SearchInput {
		return
	}
	length := utf8.RuneCountInString(el.Value)
	if length < minSearchLength {
		return
	}
	r.RecordInteraction(KindSearchInput, Payload{
		Query:       el.Value,
		QueryLength: length,
		Path:        r.pathOf(ev),
	})
}

func (r *Recorder) onIntersection(ev browser.Event) {
	el := ev.Target
	if el == nil || el.Section == "" {
		return
	}
	if ev.Intersecting {
		r.sections[el.Ref] = r.scheduler.Now()
		return
	}
	started, ok := r.sections[el.Ref]
	if !ok {
		return
	}
	delete(r.sections, el.Ref)
	r.RecordInteraction(KindSectionTime, Payload{
		Section:     el.Section,
		TimeSpentMs: r.scheduler.Now().Sub(started).Milliseconds(),
		Path:        r.pathOf(ev),
	})
}

func (r *Recorder) onNavigate(ev browser.Event) {
	path := ev.Path
	if path == "" {
		path = r.path
	}
	r.RecordPageView(path)
}

func (r *Recorder) onProductView(ev browser.Event) {
	r.TrackProductView(ev.ProductID, ev.Attributes)
}

func (r *Recorder) onPurchaseIntent(ev browser.Event) {
	r.TrackPurchaseIntent(ev.ProductID, ev.Action)
}
