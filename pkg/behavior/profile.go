package behavior

import (
	"math"
	"strings"
	"time"
)

type BehaviorProfile struct {
	ExplorationStyle      string `json:"explorationStyle"`
	DecisionSpeed         string `json:"decisionSpeed"`
	InteractionPreference string `json:"interactionPreference"`
	ContentPreference     string `json:"contentPreference"`
}

type Summary struct {
	SessionID         string          `json:"sessionId"`
	TotalInteractions int             `json:"totalInteractions"`
	SessionDurationMs int64           `json:"sessionDuration"`
	EngagementScore   int             `json:"engagementScore"`
	Profile           BehaviorProfile `json:"behaviorProfile"`
	State             SessionState    `json:"state"`
}

// Summary reports the session so far.
func (r *Recorder) Summary() Summary {
	elapsed := r.scheduler.Now().Sub(r.start)
	return Summary{
		SessionID:         r.sessionID,
		TotalInteractions: len(r.records),
		SessionDurationMs: elapsed.Milliseconds(),
		EngagementScore:   EngagementScore(len(r.records), elapsed, r.state.PagesVisited),
		Profile:           Profile(r.records),
		State:             r.state.Clone(),
	}
}

// EngagementScore weighs interactions, time and pages into a 0-100 score.
func EngagementScore(interactions int, elapsed time.Duration, pages int) int {
	score := float64(interactions)*2 + elapsed.Seconds()*0.1 + float64(pages)*5
	return int(math.Min(100, math.Round(score)))
}

func Profile(log []Record) BehaviorProfile {
	var navigations, hovers int
	var clicks []time.Time
	var productRecords, communityRecords int

	for _, r := range log {
		switch r.Kind {
		case KindNavigation:
			navigations++
		case KindHover:
			hovers++
		case KindClick:
			clicks = append(clicks, r.Timestamp)
		}
		if r.Payload.ProductID != "" || r.Payload.InteractionType == InteractionProduct {
			productRecords++
		}
		if strings.Contains(r.Payload.Path, "/community") || strings.Contains(r.Payload.Path, "/stories") {
			communityRecords++
		}
	}

	return BehaviorProfile{
		ExplorationStyle:      explorationStyle(navigations, hovers),
		DecisionSpeed:         decisionSpeed(clicks),
		InteractionPreference: interactionPreference(hovers, len(clicks)),
		ContentPreference:     contentPreference(productRecords, communityRecords),
	}
}

func explorationStyle(navigations, hovers int) string {
	switch {
	case navigations > 5:
		return "browser"
	case hovers > 10:
		return "examiner"
	default:
		return "focused"
	}
}

func decisionSpeed(clicks []time.Time) string {
	if len(clicks) < 2 {
		return "unknown"
	}
	avg := clicks[len(clicks)-1].Sub(clicks[0]) / time.Duration(len(clicks)-1)
	switch {
	case avg < 2*time.Second:
		return "fast"
	case avg > 10*time.Second:
		return "deliberate"
	default:
		return "moderate"
	}
}

func interactionPreference(hovers, clicks int) string {
	switch {
	case hovers > clicks*2:
		return "hover-heavy"
	case clicks > hovers*2:
		return "click-heavy"
	default:
		return "balanced"
	}
}

func contentPreference(products, community int) string {
	switch {
	case products > community*2:
		return "product-focused"
	case community > products:
		return "community-focused"
	default:
		return "balanced"
	}
}
