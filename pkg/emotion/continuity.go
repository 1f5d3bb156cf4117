package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canvasthink-be/pkg/store"
)

const (
	SnapshotVersion  = 1
	snapshotSamples  = 10
	stylePrefixClass = "ct-interaction-"
)

var ErrUnsupportedSnapshot = errors.New("unsupported emotional context version")

// ContextStore persists one opaque snapshot per visitor.
type ContextStore interface {
	Load(ctx context.Context, visitorID string) ([]byte, error)
	Save(ctx context.Context, visitorID string, data []byte) error
}

type Style string

const (
	StyleEfficient   Style = "efficient"
	StyleDetailed    Style = "detailed"
	StyleExploratory Style = "exploratory"
	StyleDirect      Style = "direct"
	StyleSupportive  Style = "supportive"
	StyleBalanced    Style = "balanced"
)

func styleOf(l Label) Style {
	switch l {
	case Rushed:
		return StyleEfficient
	case Contemplative:
		return StyleDetailed
	case Curious:
		return StyleExploratory
	case Confident:
		return StyleDirect
	case Hesitant:
		return StyleSupportive
	default:
		return StyleBalanced
	}
}

// Class is the body class that applies the style.
func (s Style) Class() string {
	return stylePrefixClass + string(s)
}

type ContentPreferences struct {
	PrefersDetailedInfo bool `json:"prefersDetailedInfo"`
	PrefersSocialProof  bool `json:"prefersSocialProof"`
	PrefersExploration  bool `json:"prefersExploration"`
}

// Snapshot is the persisted emotional context of a visitor.
type Snapshot struct {
	Version                   int                `json:"version"`
	PersonalizedSettings      map[string]string  `json:"personalizedSettings"`
	RecentEmotionalStates     []Sample           `json:"recentEmotionalStates"`
	PreferredInteractionStyle Style              `json:"preferredInteractionStyle"`
	ContentPreferences        ContentPreferences `json:"contentPreferences"`
	LastSession               time.Time          `json:"lastSession"`
}

// PreferredStyle is a majority vote of the styles implied by samples. Ties go
// to the style seen most recently.
func PreferredStyle(samples []Sample) Style {
	if len(samples) == 0 {
		return StyleBalanced
	}
	counts := make(map[Style]int)
	lastSeen := make(map[Style]int)
	for i, s := range samples {
		style := styleOf(s.Label)
		counts[style]++
		lastSeen[style] = i
	}
	best := styleOf(samples[len(samples)-1].Label)
	for style, n := range counts {
		if n > counts[best] || (n == counts[best] && lastSeen[style] > lastSeen[best]) {
			best = style
		}
	}
	return best
}

func DerivePreferences(samples []Sample) ContentPreferences {
	counts := make(map[Label]int)
	for _, s := range samples {
		counts[s.Label]++
	}
	return ContentPreferences{
		PrefersDetailedInfo: counts[Contemplative] > 3,
		PrefersSocialProof:  counts[Hesitant] > 2,
		PrefersExploration:  counts[Curious] > 4,
	}
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses data and rejects unknown versions and labels.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode emotional context: %w", err)
	}
	if s.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, s.Version)
	}
	for _, sample := range s.RecentEmotionalStates {
		if !sample.Label.Valid() {
			return Snapshot{}, fmt.Errorf("decode emotional context: %w", ErrUnknownLabel)
		}
	}
	if len(s.RecentEmotionalStates) > snapshotSamples {
		s.RecentEmotionalStates = s.RecentEmotionalStates[len(s.RecentEmotionalStates)-snapshotSamples:]
	}
	if s.PreferredInteractionStyle == "" {
		s.PreferredInteractionStyle = StyleBalanced
	}
	return s, nil
}

// Snapshot captures the context to persist. Without new samples the restored
// style and preferences carry over unchanged.
func (c *Classifier) Snapshot() Snapshot {
	settings := make(map[string]string, len(c.settings))
	for k, v := range c.settings {
		settings[k] = v
	}

	snap := Snapshot{
		Version:               SnapshotVersion,
		PersonalizedSettings:  settings,
		RecentEmotionalStates: c.recentForSnapshot(),
		LastSession:           c.scheduler.Now(),
	}

	if c.history.len() == 0 && c.baseline != nil {
		snap.PreferredInteractionStyle = c.baseline.PreferredInteractionStyle
		snap.ContentPreferences = c.baseline.ContentPreferences
		return snap
	}

	votes := append(append([]Sample{}, c.prior...), c.history.all()...)
	snap.PreferredInteractionStyle = PreferredStyle(votes)
	snap.ContentPreferences = DerivePreferences(votes)
	return snap
}

func (c *Classifier) recentForSnapshot() []Sample {
	recent := c.history.tail(snapshotSamples)
	if missing := snapshotSamples - len(recent); missing > 0 && len(c.prior) > 0 {
		if missing > len(c.prior) {
			missing = len(c.prior)
		}
		recent = append(append([]Sample{}, c.prior[len(c.prior)-missing:]...), recent...)
	}
	return recent
}

// restore loads the visitor's previous context and publishes its baseline.
func (c *Classifier) restore(ctx context.Context) {
	if c.store == nil || c.cfg.VisitorID == "" {
		return
	}
	data, err := c.store.Load(ctx, c.cfg.VisitorID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		c.log.Warn(moduleName, "Could not load emotional context", map[string]interface{}{
			"visitor_id": c.cfg.VisitorID,
			"error":      err.Error(),
		})
		return
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		c.log.Warn(moduleName, "Could not restore emotional context", map[string]interface{}{
			"visitor_id": c.cfg.VisitorID,
			"error":      err.Error(),
		})
		return
	}

	c.baseline = &snap
	c.prior = append([]Sample{}, snap.RecentEmotionalStates...)
	for k, v := range snap.PersonalizedSettings {
		c.settings[k] = v
	}

	c.preferences.Publish(PreferencesApplied{
		SessionID:          c.cfg.SessionID,
		VisitorID:          c.cfg.VisitorID,
		Style:              snap.PreferredInteractionStyle,
		Classes:            []string{snap.PreferredInteractionStyle.Class()},
		ContentPreferences: snap.ContentPreferences,
		OccurredAt:         c.scheduler.Now(),
	})
}

// Persist writes the current snapshot to the context store.
func (c *Classifier) Persist(ctx context.Context) error {
	if c.store == nil || c.cfg.VisitorID == "" {
		return nil
	}
	data, err := EncodeSnapshot(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode emotional context: %w", err)
	}
	if err := c.store.Save(ctx, c.cfg.VisitorID, data); err != nil {
		return fmt.Errorf("save emotional context: %w", err)
	}
	return nil
}
