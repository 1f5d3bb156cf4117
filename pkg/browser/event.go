// Package browser models the DOM events a storefront page forwards to its
// session pipeline. The client shim resolves element markers (closest
// trackable ancestor, product subtree, page section) before sending, so the
// server never needs a DOM.
package browser

import "strings"

type Type string

const (
	TypePushState      Type = "pushstate"
	TypeReplaceState   Type = "replacestate"
	TypePopState       Type = "popstate"
	TypeScroll         Type = "scroll"
	TypeMouseMove      Type = "mousemove"
	TypeMouseDown      Type = "mousedown"
	TypeMouseUp        Type = "mouseup"
	TypeMouseEnter     Type = "mouseenter"
	TypeMouseLeave     Type = "mouseleave"
	TypeClick          Type = "click"
	TypeFocus          Type = "focus"
	TypeSubmit         Type = "submit"
	TypeInput          Type = "input"
	TypeIntersection   Type = "intersection"
	TypeProductView    Type = "product_view"
	TypePurchaseIntent Type = "purchase_intent"
)

// Capability is an optional browser API a page may or may not expose.
type Capability string

const (
	CapabilityHistory      Capability = "history"
	CapabilityIntersection Capability = "intersection_observer"
)

// Element describes an event target together with the markers found on it or
// on its closest marked ancestor.
type Element struct {
	// Ref identifies the DOM node. Two events with the same Ref target the same node.
	Ref       string `json:"ref"`
	Tag       string `json:"tag,omitempty"`
	ID        string `json:"id,omitempty"`
	ClassName string `json:"className,omitempty"`
	Text      string `json:"text,omitempty"`
	Href      string `json:"href,omitempty"`

	// Form fields.
	Type       string `json:"type,omitempty"`
	Name       string `json:"name,omitempty"`
	Value      string `json:"value,omitempty"`
	FormID     string `json:"formId,omitempty"`
	FormAction string `json:"formAction,omitempty"`
	FieldCount int    `json:"fieldCount,omitempty"`

	// Markers.
	TrackHover  string `json:"trackHover,omitempty"`
	ProductID   string `json:"productId,omitempty"`
	Section     string `json:"trackSection,omitempty"`
	SearchInput bool   `json:"searchInput,omitempty"`
}

var ctaClasses = []string{"btn-primary", "btn-secondary", "btn-accent"}

func (e *Element) Is(tags ...string) bool {
	if e == nil {
		return false
	}
	for _, tag := range tags {
		if strings.EqualFold(e.Tag, tag) {
			return true
		}
	}
	return false
}

func (e *Element) HasClass(class string) bool {
	if e == nil {
		return false
	}
	for _, c := range strings.Fields(e.ClassName) {
		if c == class {
			return true
		}
	}
	return false
}

// IsFormField reports whether the element takes user input.
func (e *Element) IsFormField() bool {
	return e.Is("input", "textarea", "select")
}

// IsCallToAction reports whether the element is a button or a styled CTA.
func (e *Element) IsCallToAction() bool {
	if e.Is("button") {
		return true
	}
	for _, class := range ctaClasses {
		if e.HasClass(class) {
			return true
		}
	}
	return false
}

// Page is what the shim knows about the document when a session starts.
type Page struct {
	Path      string `json:"path"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Event is one normalized DOM or application event.
type Event struct {
	Type   Type     `json:"type" validate:"required"`
	Path   string   `json:"path,omitempty"`
	Target *Element `json:"target,omitempty"`

	// Pointer position in client coordinates.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Scroll geometry.
	ScrollY        float64 `json:"scrollY,omitempty"`
	ScrollHeight   float64 `json:"scrollHeight,omitempty"`
	ViewportHeight float64 `json:"viewportHeight,omitempty"`

	Intersecting bool `json:"intersecting,omitempty"`

	// Application events.
	ProductID  string            `json:"productId,omitempty"`
	Action     string            `json:"action,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// ClientTime is the page's own epoch-ms stamp. It is kept for diagnostics only.
	ClientTime int64 `json:"clientTime,omitempty"`
}
