package emotion

import (
	"context"
	"testing"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock       *clock.Manual
	src         *browser.Dispatcher
	store       *store.MemoryStore
	recorder    *behavior.Recorder
	classifier  *Classifier
	changes     []StateChanged
	adaptations []AdaptationAvailable
	preferences []PreferencesApplied
}

func newHarness(t *testing.T, st *store.MemoryStore) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore(time.Hour)
	}
	h := &harness{
		clock: clock.NewManual(epoch),
		src:   browser.NewDispatcher(browser.CapabilityHistory),
		store: st,
	}
	log := logger.NewNopLogger()
	h.classifier = NewClassifier(Config{SessionID: "ct_1", VisitorID: "visitor-1"}, h.clock, st, log)
	h.classifier.OnStateChanged(func(e StateChanged) { h.changes = append(h.changes, e) })
	h.classifier.OnAdaptation(func(e AdaptationAvailable) { h.adaptations = append(h.adaptations, e) })
	h.classifier.OnPreferences(func(e PreferencesApplied) { h.preferences = append(h.preferences, e) })
	h.classifier.Init(context.Background())
	h.classifier.Attach(h.src)

	h.recorder = behavior.NewRecorder("ct_1", h.clock, nil, log)
	h.recorder.OnInteraction(h.classifier.Observe)
	h.recorder.Init(h.src, browser.Page{Path: "/"})
	return h
}

func (h *harness) at(ms int, ev browser.Event) {
	h.clock.Set(epoch.Add(time.Duration(ms) * time.Millisecond))
	h.src.Dispatch(ev)
}

func (h *harness) current(t *testing.T) Sample {
	t.Helper()
	s, ok := h.classifier.Current()
	require.True(t, ok, "expected a current state")
	return s
}

func TestRapidClicksAreFrustrated(t *testing.T) {
	h := newHarness(t, nil)

	for _, ms := range []int{0, 400, 800, 1200} {
		h.at(ms, browser.Event{Type: browser.TypeClick, Target: &browser.Element{Tag: "DIV"}})
	}

	current := h.current(t)
	assert.Equal(t, Frustrated, current.Label)
	assert.Equal(t, 0.8, current.Confidence)
	require.NotEmpty(t, h.adaptations)
	assert.Equal(t, []string{ClassSimplifiedNav, ClassHighlightHelp, ClassLargeTargets}, h.adaptations[len(h.adaptations)-1].Classes)
}

func TestSlowClicksAreNotFrustrated(t *testing.T) {
	h := newHarness(t, nil)

	for _, ms := range []int{0, 1500, 3000} {
		h.at(ms, browser.Event{Type: browser.TypeClick})
	}

	_, ok := h.classifier.Current()
	assert.False(t, ok)
}

func TestLongHoverWithoutClickIsContemplative(t *testing.T) {
	h := newHarness(t, nil)
	card := &browser.Element{Ref: "card", TrackHover: "product-card"}

	h.at(1000, browser.Event{Type: browser.TypeMouseEnter, Target: card})
	h.at(4500, browser.Event{Type: browser.TypeMouseLeave, Target: card})

	current := h.current(t)
	assert.Equal(t, Contemplative, current.Label)
	assert.Equal(t, 0.8, current.Confidence)
}

func TestLongHoverInterruptedByClick(t *testing.T) {
	h := newHarness(t, nil)
	card := &browser.Element{Ref: "card", TrackHover: "product-card"}

	h.at(1000, browser.Event{Type: browser.TypeMouseEnter, Target: card})
	h.at(2000, browser.Event{Type: browser.TypeClick, Target: &browser.Element{Tag: "IMG"}})
	h.at(4500, browser.Event{Type: browser.TypeMouseLeave, Target: card})

	for _, c := range h.changes {
		assert.False(t, c.Label == Contemplative && c.Confidence == 0.8, "window heuristic must not fire")
	}
}

func TestCorrelationsAreEdgeTriggered(t *testing.T) {
	h := newHarness(t, nil)
	card := &browser.Element{Ref: "card", TrackHover: "x"}

	h.at(100, browser.Event{Type: browser.TypeMouseEnter, Target: card})
	h.at(200, browser.Event{Type: browser.TypeMouseLeave, Target: card})
	h.at(300, browser.Event{Type: browser.TypeMouseEnter, Target: card})
	h.at(400, browser.Event{Type: browser.TypeMouseLeave, Target: card})

	require.Len(t, h.changes, 1)
	assert.Equal(t, Contemplative, h.changes[0].Label)
	assert.Equal(t, 0.75, h.changes[0].Confidence)
}

func TestQuickNavigationAndProductComparison(t *testing.T) {
	h := newHarness(t, nil)

	h.at(500, browser.Event{Type: browser.TypePushState, Path: "/product/1"})
	assert.Equal(t, Frustrated, h.current(t).Label)

	h.at(5000, browser.Event{Type: browser.TypeProductView, ProductID: "p-1"})
	h.at(9000, browser.Event{Type: browser.TypeProductView, ProductID: "p-2"})
	current := h.current(t)
	assert.Equal(t, Deciding, current.Label)
	assert.Equal(t, "/product/1", current.Path)
	assert.Equal(t, Frustrated, current.PreviousLabel)
}

func TestUpdateStateBelowBarHasNoAdaptation(t *testing.T) {
	h := newHarness(t, nil)

	h.classifier.UpdateState(Relaxed, 0.5)
	h.classifier.UpdateState(Relaxed, 0.6)

	require.Len(t, h.changes, 2)
	require.Len(t, h.adaptations, 1)
	assert.Equal(t, Relaxed, h.adaptations[0].Label)
	assert.Equal(t, 0.6, h.adaptations[0].Confidence)
}

func TestHistoryTrimsOnFiftyFirstSample(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 50; i++ {
		h.clock.Advance(time.Millisecond)
		h.classifier.UpdateState(Labels()[i%len(Labels())], 0.3)
	}
	assert.Len(t, h.classifier.History(), 50)

	h.clock.Advance(time.Millisecond)
	h.classifier.UpdateState(Confident, 0.3)

	history := h.classifier.History()
	require.Len(t, history, 25)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp))
	}
	assert.Equal(t, epoch.Add(27*time.Millisecond), history[0].Timestamp)
	assert.Equal(t, Confident, history[24].Label)
}

func TestSetStateValidatesLabel(t *testing.T) {
	h := newHarness(t, nil)

	assert.ErrorIs(t, h.classifier.SetState(None, 0), ErrUnknownLabel)
	require.NoError(t, h.classifier.SetState(Delighted, 0))

	assert.Equal(t, DefaultOverrideConfidence, h.current(t).Confidence)
	insights := h.classifier.Insights()
	require.NotNil(t, insights.Suggestions)
	assert.True(t, insights.Suggestions.Adaptation.UI.ShowDiscovery)
}

func TestTrajectoryPredictsWithoutPrefetchAtThreshold(t *testing.T) {
	h := newHarness(t, nil)

	h.classifier.UpdateState(Engaged, 0.8)
	h.classifier.UpdateState(Confident, 0.8)
	h.clock.Advance(DefaultTrajectoryInterval)
	_, _, ok := h.classifier.Prediction()
	assert.False(t, ok, "needs three samples")

	h.classifier.UpdateState(Curious, 0.8)
	h.clock.Advance(DefaultTrajectoryInterval)

	prediction, trajectory, ok := h.classifier.Prediction()
	require.True(t, ok)
	assert.Equal(t, Engaged, prediction.Label)
	assert.Equal(t, 0.7, prediction.Probability)
	assert.Equal(t, Curious, trajectory.Dominant)
	assert.Equal(t, TrendStable, trajectory.Trend)

	_, ok = h.classifier.Prefetched(Engaged)
	assert.False(t, ok, "0.7 does not exceed the prefetch bar")
}

func TestTrajectoryPrefetchesLikelyNextState(t *testing.T) {
	saved := transitions[Curious]
	transitions[Curious] = []weighted{{Delighted, 0.8}, {Frustrated, 0.2}}
	t.Cleanup(func() { transitions[Curious] = saved })

	h := newHarness(t, nil)
	h.classifier.UpdateState(Engaged, 0.8)
	h.classifier.UpdateState(Confident, 0.8)
	h.classifier.UpdateState(Curious, 0.8)
	h.clock.Advance(DefaultTrajectoryInterval)

	prediction, _, ok := h.classifier.Prediction()
	require.True(t, ok)
	assert.Equal(t, Delighted, prediction.Label)

	prefetched, ok := h.classifier.Prefetched(Delighted)
	require.True(t, ok)
	assert.Equal(t, rules[Delighted], prefetched)

	current := h.current(t)
	assert.Equal(t, Curious, current.Label, "prefetch never applies the state")
}

func TestPersistAndRestoreRoundTrip(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	first := newHarness(t, st)
	for i := 0; i < 4; i++ {
		first.classifier.UpdateState(Contemplative, 0.8)
	}
	for i := 0; i < 3; i++ {
		first.classifier.UpdateState(Hesitant, 0.7)
	}
	before := first.classifier.Snapshot()
	require.NoError(t, first.classifier.Close(context.Background()))

	assert.Equal(t, StyleDetailed, before.PreferredInteractionStyle)
	assert.Equal(t, ContentPreferences{PrefersDetailedInfo: true, PrefersSocialProof: true}, before.ContentPreferences)

	second := newHarness(t, st)
	require.Len(t, second.preferences, 1)
	assert.Equal(t, StyleDetailed, second.preferences[0].Style)
	assert.Equal(t, []string{"ct-interaction-detailed"}, second.preferences[0].Classes)

	after := second.classifier.Snapshot()
	assert.Equal(t, before.PreferredInteractionStyle, after.PreferredInteractionStyle)
	assert.Equal(t, before.ContentPreferences, after.ContentPreferences)
	assert.Len(t, after.RecentEmotionalStates, 7)

	_, ok := second.classifier.Current()
	assert.False(t, ok, "restored samples are prior history, not the current state")
}

func TestMalformedContextIsTreatedAsAbsent(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        `{"version":`,
		"unknown version": `{"version":7,"preferredInteractionStyle":"direct"}`,
		"unknown label":   `{"version":1,"recentEmotionalStates":[{"state":"sleepy","confidence":1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			st := store.NewMemoryStore(time.Hour)
			require.NoError(t, st.Save(context.Background(), "visitor-1", []byte(raw)))

			h := newHarness(t, st)

			assert.Empty(t, h.preferences)
			assert.Empty(t, h.classifier.History())
			assert.Equal(t, StyleBalanced, h.classifier.Snapshot().PreferredInteractionStyle)
		})
	}
}

func TestPeriodicPersist(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.UpdateState(Rushed, 0.7)

	_, err := h.store.Load(context.Background(), "visitor-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	h.clock.Advance(DefaultPersistInterval)

	data, err := h.store.Load(context.Background(), "visitor-1")
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, StyleEfficient, snap.PreferredInteractionStyle)
	assert.Equal(t, SnapshotVersion, snap.Version)
}

func TestCloseStopsTimers(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, 2, h.clock.Pending())

	require.NoError(t, h.classifier.Close(context.Background()))

	assert.Equal(t, 0, h.clock.Pending())
}
