package emotion

import (
	"time"

	"canvasthink-be/pkg/events"
)

const (
	historyCap    = 50
	historyKeep   = 25
	adaptationBar = 0.6
)

// Sample is one classifier output.
type Sample struct {
	Label         Label     `json:"state"`
	Confidence    float64   `json:"confidence"`
	Timestamp     time.Time `json:"timestamp"`
	Path          string    `json:"path,omitempty"`
	PreviousLabel Label     `json:"previousState,omitempty"`
}

// history keeps samples in order and trims to the newest historyKeep once it
// grows past historyCap.
type history struct {
	samples []Sample
}

func (h *history) append(s Sample) {
	h.samples = append(h.samples, s)
	if len(h.samples) > historyCap {
		kept := make([]Sample, historyKeep)
		copy(kept, h.samples[len(h.samples)-historyKeep:])
		h.samples = kept
	}
}

func (h *history) len() int { return len(h.samples) }

func (h *history) last() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// tail returns a copy of the newest n samples.
func (h *history) tail(n int) []Sample {
	if n > len(h.samples) {
		n = len(h.samples)
	}
	out := make([]Sample, n)
	copy(out, h.samples[len(h.samples)-n:])
	return out
}

func (h *history) all() []Sample {
	return h.tail(len(h.samples))
}

// StateChanged is published for every sample.
type StateChanged struct {
	SessionID     string
	Label         Label
	Confidence    float64
	PreviousLabel Label
	Path          string
	OccurredAt    time.Time
}

func (e StateChanged) EventType() string    { return events.TypeStateChanged }
func (e StateChanged) Timestamp() time.Time { return e.OccurredAt }
func (e StateChanged) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":     e.SessionID,
		"state":          e.Label.String(),
		"confidence":     e.Confidence,
		"previous_state": e.PreviousLabel.String(),
		"path":           e.Path,
		"timestamp":      e.OccurredAt.UnixMilli(),
	}
}

// AdaptationAvailable is published for samples at or above the adaptation bar.
type AdaptationAvailable struct {
	SessionID  string
	Label      Label
	Adaptation Adaptation
	Classes    []string
	Confidence float64
	OccurredAt time.Time
}

func (e AdaptationAvailable) EventType() string    { return events.TypeAdaptation }
func (e AdaptationAvailable) Timestamp() time.Time { return e.OccurredAt }
func (e AdaptationAvailable) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":             e.SessionID,
		"state":                  e.Label.String(),
		"uiAdaptations":          e.Adaptation.UI,
		"contentAdaptations":     e.Adaptation.Content,
		"interactionAdaptations": e.Adaptation.Interaction,
		"classes":                e.Classes,
		"confidence":             e.Confidence,
		"timestamp":              e.OccurredAt.UnixMilli(),
	}
}

// PreferencesApplied carries the baseline restored from a previous session.
type PreferencesApplied struct {
	SessionID          string
	VisitorID          string
	Style              Style
	Classes            []string
	ContentPreferences ContentPreferences
	OccurredAt         time.Time
}

func (e PreferencesApplied) EventType() string    { return events.TypePreferences }
func (e PreferencesApplied) Timestamp() time.Time { return e.OccurredAt }
func (e PreferencesApplied) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":         e.SessionID,
		"visitor_id":         e.VisitorID,
		"style":              string(e.Style),
		"classes":            e.Classes,
		"contentPreferences": e.ContentPreferences,
		"timestamp":          e.OccurredAt.UnixMilli(),
	}
}
