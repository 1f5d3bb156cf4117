package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"canvasthink-be/internal/dto"
	"canvasthink-be/internal/model"
	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/internal/repository/specification"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/emotion"
	"canvasthink-be/pkg/events"
	pktNats "canvasthink-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	interactions []model.InteractionRecord
	samples      []model.EmotionalSample
	adaptations  []model.AdaptationLog
	specs        []specification.Specification
	err          error
}

func (f *fakeArchive) CreateInteraction(_ context.Context, r *model.InteractionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.interactions = append(f.interactions, *r)
	return nil
}

func (f *fakeArchive) CreateSample(_ context.Context, s *model.EmotionalSample) error {
	if f.err != nil {
		return f.err
	}
	f.samples = append(f.samples, *s)
	return nil
}

func (f *fakeArchive) CreateAdaptation(_ context.Context, l *model.AdaptationLog) error {
	if f.err != nil {
		return f.err
	}
	f.adaptations = append(f.adaptations, *l)
	return nil
}

func (f *fakeArchive) FindInteractions(_ context.Context, specs ...specification.Specification) ([]model.InteractionRecord, error) {
	f.specs = specs
	return f.interactions, nil
}

func (f *fakeArchive) FindSamples(_ context.Context, specs ...specification.Specification) ([]model.EmotionalSample, error) {
	return f.samples, nil
}

// overTheWire mimics the JSON round trip through JetStream.
func overTheWire(t *testing.T, ev events.Event) events.Event {
	t.Helper()
	data, err := json.Marshal(ev.Payload())
	require.NoError(t, err)
	decoded, err := pktNats.Decode(pktNats.Subject(ev.EventType()), data)
	require.NoError(t, err)
	return decoded
}

var archiveTime = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

func TestArchiveInteraction(t *testing.T) {
	repo := &fakeArchive{}
	svc := NewArchiveService(repo, nil, "test", logger.NewNopLogger())

	env := analytics.Envelope{SessionID: "ct_1", Record: behavior.Record{
		Kind:             behavior.KindClick,
		Payload:          behavior.Payload{Path: "/product/9", TagName: "BUTTON"},
		Timestamp:        archiveTime,
		SessionElapsedMs: 1200,
	}}
	require.NoError(t, svc.handleEvent(context.Background(), overTheWire(t, env)))

	require.Len(t, repo.interactions, 1)
	got := repo.interactions[0]
	assert.Equal(t, "ct_1", got.SessionID)
	assert.Equal(t, "click", got.Kind)
	assert.Equal(t, "/product/9", got.Path)
	assert.Equal(t, int64(1200), got.SessionTimeMs)
	assert.True(t, archiveTime.Equal(got.OccurredAt))
	assert.JSONEq(t, `{"path":"/product/9","tagName":"BUTTON"}`, string(got.Data))
}

func TestArchiveEmotionEvents(t *testing.T) {
	repo := &fakeArchive{}
	svc := NewArchiveService(repo, nil, "test", logger.NewNopLogger())

	changed := emotion.StateChanged{SessionID: "ct_1", Label: emotion.Engaged, Confidence: 0.8, PreviousLabel: emotion.Curious, Path: "/", OccurredAt: archiveTime}
	rules, _ := emotion.RulesFor(emotion.Frustrated)
	adapted := emotion.AdaptationAvailable{SessionID: "ct_1", Label: emotion.Frustrated, Adaptation: rules, Classes: rules.Classes(), Confidence: 0.8, OccurredAt: archiveTime}
	prefs := emotion.PreferencesApplied{SessionID: "ct_1", Style: emotion.StyleDetailed, OccurredAt: archiveTime}

	for _, ev := range []events.Event{changed, adapted, prefs} {
		require.NoError(t, svc.handleEvent(context.Background(), overTheWire(t, ev)))
	}

	require.Len(t, repo.samples, 1)
	assert.Equal(t, "engaged", repo.samples[0].State)
	assert.Equal(t, "curious", repo.samples[0].PreviousState)
	assert.Equal(t, 0.8, repo.samples[0].Confidence)

	require.Len(t, repo.adaptations, 1)
	assert.Equal(t, rules.Classes(), []string(repo.adaptations[0].Classes))
}

func TestArchiveStorageFailureIsRetried(t *testing.T) {
	repo := &fakeArchive{err: errors.New("connection refused")}
	svc := NewArchiveService(repo, nil, "test", logger.NewNopLogger())

	changed := emotion.StateChanged{SessionID: "ct_1", Label: emotion.Relaxed, Confidence: 0.5, OccurredAt: archiveTime}
	assert.Error(t, svc.handleEvent(context.Background(), overTheWire(t, changed)))

	anonymous := events.BaseEvent{Type: events.TypeStateChanged, Data: map[string]interface{}{"state": "relaxed"}}
	assert.NoError(t, svc.handleEvent(context.Background(), anonymous))
}

func TestArchiveHistory(t *testing.T) {
	repo := &fakeArchive{samples: []model.EmotionalSample{{SessionID: "ct_1", State: "curious"}}}
	svc := NewArchiveService(repo, nil, "test", logger.NewNopLogger())

	got, err := svc.History(context.Background(), "ct_1", dto.ArchiveQuery{Kind: "click", Limit: 9000})
	require.NoError(t, err)
	assert.Equal(t, "ct_1", got.SessionID)
	assert.Len(t, got.Samples, 1)
	assert.Empty(t, got.Interactions)

	assert.Contains(t, repo.specs, specification.Specification(specification.BySession{SessionID: "ct_1"}))
	assert.Contains(t, repo.specs, specification.Specification(specification.ByKind{Kind: "click"}))
	assert.Contains(t, repo.specs, specification.Specification(specification.Limit{N: maxHistory}))
}
