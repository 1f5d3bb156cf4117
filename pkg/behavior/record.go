// Package behavior turns normalized browser events into an append-only log of
// typed interaction records and keeps the session aggregates folded over it.
package behavior

import (
	"time"
)

type Kind string

const (
	KindPageView        Kind = "page_view"
	KindNavigation      Kind = "navigation"
	KindScrollSession   Kind = "scroll_session"
	KindScrollMilestone Kind = "scroll_milestone"
	KindHover           Kind = "hover"
	KindClick           Kind = "click"
	KindFormFocus       Kind = "form_focus"
	KindFormSubmit      Kind = "form_submit"
	KindSearchInput     Kind = "search_input"
	KindProductView     Kind = "product_view"
	KindPurchaseIntent  Kind = "purchase_intent"
	KindSectionTime     Kind = "section_time"
)

var kinds = []Kind{
	KindPageView, KindNavigation, KindScrollSession, KindScrollMilestone, KindHover, KindClick,
	KindFormFocus, KindFormSubmit, KindSearchInput, KindProductView, KindPurchaseIntent, KindSectionTime,
}

// Kinds lists every record kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Click interaction types.
const (
	InteractionProduct = "product_interaction"
	InteractionCTA     = "cta_click"
)

// Purchase intent actions.
const (
	ActionAddToCart     = "add_to_cart"
	ActionAddToWishlist = "add_to_wishlist"
	ActionCheckoutStart = "checkout_start"
)

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Payload carries the kind-specific attributes of a record. Only the fields
// relevant to the record's kind are set.
type Payload struct {
	Path string `json:"path,omitempty"`

	// page_view
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	// navigation
	Sequence           int   `json:"sequence,omitempty"`
	TimeFromPreviousMs int64 `json:"timeFromPrevious,omitempty"`

	// scroll_session, scroll_milestone
	MaxDepth      int   `json:"maxDepth,omitempty"`
	DurationMs    int64 `json:"duration,omitempty"`
	Milestone     int   `json:"milestone,omitempty"`
	TimeToReachMs int64 `json:"timeToReach,omitempty"`

	// hover
	Element     string `json:"element,omitempty"`
	ElementText string `json:"elementText,omitempty"`

	// click
	TagName         string       `json:"tagName,omitempty"`
	ClassName       string       `json:"className,omitempty"`
	ElementID       string       `json:"id,omitempty"`
	TextContent     string       `json:"textContent,omitempty"`
	Href            string       `json:"href,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	InteractionType string       `json:"interactionType,omitempty"`

	// form_focus, form_submit
	FieldType  string `json:"fieldType,omitempty"`
	FieldName  string `json:"fieldName,omitempty"`
	FormID     string `json:"formId,omitempty"`
	FormAction string `json:"formAction,omitempty"`
	FieldCount int    `json:"fieldCount,omitempty"`

	// search_input
	Query       string `json:"query,omitempty"`
	QueryLength int    `json:"queryLength,omitempty"`

	// product_view, purchase_intent, click inside a product subtree
	ProductID  string            `json:"productId,omitempty"`
	Action     string            `json:"action,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// section_time
	Section     string `json:"section,omitempty"`
	TimeSpentMs int64  `json:"timeSpent,omitempty"`
}

func (p Payload) clone() Payload {
	out := p
	if p.Coordinates != nil {
		c := *p.Coordinates
		out.Coordinates = &c
	}
	if p.Attributes != nil {
		out.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Record is one observed user action. Records are never mutated once appended.
type Record struct {
	Kind             Kind      `json:"type"`
	Payload          Payload   `json:"data"`
	Timestamp        time.Time `json:"timestamp"`
	SessionElapsedMs int64     `json:"sessionTime"`
}

// Clone returns a deep copy that shares nothing with r.
func (r Record) Clone() Record {
	r.Payload = r.Payload.clone()
	return r
}

// Metrics are the rolling aggregates published alongside every record.
type Metrics struct {
	HoverCount        int     `json:"hoverCount"`
	ClickCount        int     `json:"clickCount"`
	TimeOnPageMs      int64   `json:"timeOnPage"`
	ScrollDepth       float64 `json:"scrollDepth"`
	ClicksPerMinute   int     `json:"clicksPerMinute"`
	PagesVisited      int     `json:"pagesVisited"`
	CategoryPages     int     `json:"categoryPages"`
	ProductsViewed    int     `json:"productsViewed"`
	WishlistAdditions int     `json:"wishlistAdditions"`
}

// InteractionOccurred is published for every appended record.
type InteractionOccurred struct {
	SessionID string  `json:"sessionId"`
	Record    Record  `json:"record"`
	Metrics   Metrics `json:"metrics"`
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
