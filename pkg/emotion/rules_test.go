package emotion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryLabelHasRules(t *testing.T) {
	for _, l := range Labels() {
		a, ok := RulesFor(l)
		require.True(t, ok, l.String())
		assert.NotEqual(t, Adaptation{}, a, "empty rule set for %s", l)
	}
	_, ok := RulesFor(None)
	assert.False(t, ok)
}

func TestRulesAreCopies(t *testing.T) {
	a, _ := RulesFor(Curious)
	a.UI.ShowDiscovery = false

	b, _ := RulesFor(Curious)
	assert.True(t, b.UI.ShowDiscovery)
	assert.Equal(t, []string{ClassDiscoveryMode}, b.Classes())
}

func TestLabelText(t *testing.T) {
	l, err := ParseLabel("contemplative")
	require.NoError(t, err)
	assert.Equal(t, Contemplative, l)

	_, err = ParseLabel("")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	raw, err := json.Marshal(Sample{Label: Engaged, Confidence: 0.8})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"engaged"`)
	assert.NotContains(t, string(raw), "previousState")
}

func TestPreferredStyle(t *testing.T) {
	assert.Equal(t, StyleBalanced, PreferredStyle(nil))

	samples := []Sample{{Label: Rushed}, {Label: Curious}, {Label: Rushed}, {Label: Curious}}
	assert.Equal(t, StyleExploratory, PreferredStyle(samples), "ties go to the most recent style")

	samples = append(samples, Sample{Label: Engaged}, Sample{Label: Delighted}, Sample{Label: Relaxed})
	assert.Equal(t, StyleBalanced, PreferredStyle(samples))
}

func TestAnalyzeTrajectoryTrend(t *testing.T) {
	up := []Sample{{Label: Frustrated}, {Label: Curious}, {Label: Engaged}, {Label: Confident}, {Label: Delighted}}
	traj := AnalyzeTrajectory(up)
	assert.Equal(t, TrendImproving, traj.Trend)
	assert.Len(t, traj.Transitions, 4)
	assert.Equal(t, Transition{From: Frustrated, To: Curious}, traj.Transitions[0])

	down := []Sample{{Label: Engaged}, {Label: Hesitant}, {Label: Frustrated}, {Label: Frustrated}}
	traj = AnalyzeTrajectory(down)
	assert.Equal(t, TrendDeclining, traj.Trend)
	assert.Equal(t, Frustrated, traj.Dominant)

	p := Predict(Rushed)
	assert.Equal(t, None, p.Label)
	assert.Equal(t, 0.5, p.Probability)
}
