package behavior

import (
	"strings"
	"time"
)

const categoryPathPrefix = "/category"

// SessionState holds the aggregates of one browsing session. Every field is a
// fold over the record log; FoldSession rebuilds it from scratch.
type SessionState struct {
	SessionID         string         `json:"sessionId"`
	StartTime         time.Time      `json:"startTime"`
	PagesVisited      int            `json:"pagesVisited"`
	ScrollDepthByPath map[string]int `json:"scrollDepth"`
	ProductsViewed    []string       `json:"productsViewed"`
	SearchQueries     []string       `json:"searchQueries"`

	Interactions      int       `json:"interactions"`
	HoverCount        int       `json:"hoverCount"`
	ClickCount        int       `json:"clickCount"`
	CategoryPages     int       `json:"categoryPages"`
	WishlistAdditions int       `json:"wishlistAdditions"`
	CurrentPath       string    `json:"currentPath"`
	LastPageViewAt    time.Time `json:"lastPageViewAt"`
	LastInteractionAt time.Time `json:"lastInteractionAt"`
}

func NewSessionState(sessionID string, start time.Time) SessionState {
	return SessionState{
		SessionID:         sessionID,
		StartTime:         start,
		ScrollDepthByPath: make(map[string]int),
		ProductsViewed:    []string{},
		SearchQueries:     []string{},
	}
}

// FoldSession replays log onto a fresh state.
func FoldSession(sessionID string, start time.Time, log []Record) SessionState {
	s := NewSessionState(sessionID, start)
	for _, r := range log {
		s.apply(r)
	}
	return s
}

func (s *SessionState) apply(r Record) {
	s.Interactions++
	s.LastInteractionAt = r.Timestamp

	switch r.Kind {
	case KindPageView, KindNavigation:
		s.PagesVisited++
		s.CurrentPath = r.Payload.Path
		s.LastPageViewAt = r.Timestamp
		if strings.HasPrefix(r.Payload.Path, categoryPathPrefix) {
			s.CategoryPages++
		}
	case KindScrollSession:
		s.raiseDepth(r.Payload.Path, r.Payload.MaxDepth)
	case KindScrollMilestone:
		s.raiseDepth(r.Payload.Path, r.Payload.Milestone)
	case KindHover:
		s.HoverCount++
	case KindClick:
		s.ClickCount++
	case KindSearchInput:
		s.SearchQueries = append(s.SearchQueries, r.Payload.Query)
	case KindProductView:
		s.addProduct(r.Payload.ProductID)
	case KindPurchaseIntent:
		if r.Payload.Action == ActionAddToWishlist {
			s.WishlistAdditions++
		}
	}
}

func (s *SessionState) raiseDepth(path string, depth int) {
	if depth > s.ScrollDepthByPath[path] {
		s.ScrollDepthByPath[path] = depth
	}
}

func (s *SessionState) addProduct(id string) {
	if id == "" {
		return
	}
	for _, seen := range s.ProductsViewed {
		if seen == id {
			return
		}
	}
	s.ProductsViewed = append(s.ProductsViewed, id)
}

// Clone returns a copy that shares no maps or slices with s.
func (s SessionState) Clone() SessionState {
	out := s
	out.ScrollDepthByPath = make(map[string]int, len(s.ScrollDepthByPath))
	for k, v := range s.ScrollDepthByPath {
		out.ScrollDepthByPath[k] = v
	}
	out.ProductsViewed = append([]string{}, s.ProductsViewed...)
	out.SearchQueries = append([]string{}, s.SearchQueries...)
	return out
}
