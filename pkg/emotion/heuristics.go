package emotion

import (
	"math"
	"time"

	"canvasthink-be/pkg/behavior"
)

const (
	correlationConfidence = 0.75
	windowConfidence      = 0.8

	rapidClickCount  = 3
	rapidClickSpan   = 2 * time.Second
	longHoverMs      = 3000
	deepScrollDepth  = 75
	quickNavigation  = 2000 // ms
	longPageTime     = 30000
	hoverClickRatio  = 0.7
	deepScrollRatio  = 0.8
	clicksPerMinute  = 5
	categoryBrowsing = 3
	productCompare   = 2
	wishlistAdds     = 1
)

// correlation is an edge-triggered pattern over the published metrics: it
// yields a candidate when it starts matching and stays quiet while it keeps
// matching.
type correlation struct {
	name  string
	label Label
	match func(behavior.InteractionOccurred) bool
}

var correlations = []correlation{
	{"high_hover_low_click", Contemplative, func(ev behavior.InteractionOccurred) bool {
		return float64(ev.Metrics.HoverCount)/math.Max(float64(ev.Metrics.ClickCount), 1) > hoverClickRatio
	}},
	{"long_page_time", Engaged, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.TimeOnPageMs > longPageTime
	}},
	{"deep_scroll", Curious, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.ScrollDepth > deepScrollRatio
	}},
	{"rapid_clicks", Rushed, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.ClicksPerMinute > clicksPerMinute
	}},
	{"quick_navigation", Frustrated, func(ev behavior.InteractionOccurred) bool {
		return ev.Record.Kind == behavior.KindNavigation && ev.Record.Payload.TimeFromPreviousMs < quickNavigation
	}},
	{"category_browsing", Curious, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.CategoryPages >= categoryBrowsing
	}},
	{"product_comparison", Deciding, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.ProductsViewed >= productCompare
	}},
	{"wishlist_additions", Engaged, func(ev behavior.InteractionOccurred) bool {
		return ev.Metrics.WishlistAdditions >= wishlistAdds
	}},
}

func (c *Classifier) correlate(ev behavior.InteractionOccurred) []candidate {
	var out []candidate
	for _, corr := range correlations {
		matched := corr.match(ev)
		if matched && !c.active[corr.name] {
			out = append(out, candidate{corr.label, correlationConfidence})
		}
		c.active[corr.name] = matched
	}
	return out
}

// analyzeWindow applies the short-window heuristics relevant to the newest
// record.
func analyzeWindow(window []behavior.Record, latest behavior.Record) []candidate {
	switch latest.Kind {
	case behavior.KindClick:
		if rapidClicks(window) {
			return []candidate{{Frustrated, windowConfidence}}
		}
	case behavior.KindHover:
		if latest.Payload.DurationMs > longHoverMs && !clickedDuring(window, latest) {
			return []candidate{{Contemplative, windowConfidence}}
		}
	case behavior.KindScrollSession:
		if latest.Payload.MaxDepth > deepScrollDepth {
			return []candidate{{Engaged, windowConfidence}}
		}
	}
	return nil
}

func rapidClicks(window []behavior.Record) bool {
	var first, last time.Time
	n := 0
	for _, r := range window {
		if r.Kind != behavior.KindClick {
			continue
		}
		if n == 0 {
			first = r.Timestamp
		}
		last = r.Timestamp
		n++
	}
	return n >= rapidClickCount && last.Sub(first) < rapidClickSpan
}

// clickedDuring reports whether a click landed while the hover was in progress.
func clickedDuring(window []behavior.Record, hover behavior.Record) bool {
	start := hover.Timestamp.Add(-time.Duration(hover.Payload.DurationMs) * time.Millisecond)
	for _, r := range window {
		if r.Kind == behavior.KindClick && !r.Timestamp.Before(start) && !r.Timestamp.After(hover.Timestamp) {
			return true
		}
	}
	return false
}
