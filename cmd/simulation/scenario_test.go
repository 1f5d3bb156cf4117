package main

import (
	"context"
	"testing"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/emotion"
	"canvasthink-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenarioExpandsRepeats(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: clicks
steps:
  - at: 2s
    pageview: /b
  - at: 1s
    repeat: 3
    every: 500ms
    event: {type: click, target: {tag: A, href: /x}}
`))
	require.NoError(t, err)
	assert.Equal(t, "/", sc.Page.Path)

	tl := sc.timeline()
	require.Len(t, tl, 4)
	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond, 2 * time.Second, 2 * time.Second},
		[]time.Duration{tl[0].at, tl[1].at, tl[2].at, tl[3].at})
	assert.NotNil(t, tl[2].step.Event, "file order kept for steps at the same instant")

	ev, err := tl[0].step.BrowserEvent()
	require.NoError(t, err)
	assert.Equal(t, browser.TypeClick, ev.Type)
	assert.Equal(t, "/x", ev.Target.Href)
}

func TestParseScenarioRejectsAmbiguousSteps(t *testing.T) {
	_, err := ParseScenario([]byte(`
steps:
  - at: 1s
    pageview: /a
    set_state: {state: curious}
`))
	assert.Error(t, err)

	_, err = ParseScenario([]byte(`
steps:
  - at: 1s
    repeat: 2
    pageview: /a
`))
	assert.Error(t, err)
}

func TestFrustratedShopperScenario(t *testing.T) {
	sc, err := LoadScenario("scenarios/frustrated_shopper.yaml")
	require.NoError(t, err)

	contexts := store.NewMemoryStore(time.Hour)
	first, err := Run(context.Background(), sc, 1, contexts, logger.NewNopLogger())
	require.NoError(t, err)

	var kinds []string
	for _, line := range first.Timeline {
		kinds = append(kinds, line.Kind)
	}
	assert.Contains(t, kinds, "adaptation")
	assert.Equal(t, "interaction", kinds[0])
	require.NotNil(t, first.Insights.Current)
	assert.Equal(t, emotion.Hesitant, first.Insights.Current.Label)

	second, err := Run(context.Background(), sc, 2, contexts, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "preferences", second.Timeline[0].Kind)
}

func TestDeepReaderScenarioLoads(t *testing.T) {
	sc, err := LoadScenario("scenarios/deep_reader.yaml")
	require.NoError(t, err)

	r, err := Run(context.Background(), sc, 1, store.NewMemoryStore(time.Hour), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Greater(t, r.Summary.TotalInteractions, 5)
	assert.Equal(t, int64(40000), r.Summary.SessionDurationMs)
}
