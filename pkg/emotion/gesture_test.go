package emotion

import (
	"testing"
	"time"

	"canvasthink-be/pkg/browser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(n int, step float64, every time.Duration) []Point {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{X: float64(i) * step, T: epoch.Add(time.Duration(i) * every)}
	}
	return points
}

func TestVelocitiesAndSmoothness(t *testing.T) {
	straight := line(4, 10, 10*time.Millisecond)
	assert.InDeltaSlice(t, []float64{1000, 1000, 1000}, Velocities(straight), 1e-6)
	assert.Equal(t, 1.0, Smoothness(straight))

	zigzag := []Point{{X: 0}, {X: 10}, {X: 0}, {X: 10}}
	assert.InDelta(t, 0.0, Smoothness(zigzag), 1e-9)

	assert.Equal(t, 1.0, Smoothness(straight[:2]))
	assert.Nil(t, Velocities(straight[:1]))
}

func TestClassifyGesture(t *testing.T) {
	assert.Equal(t, []candidate{{Rushed, 0.7}}, classifyGesture(line(5, 10, 10*time.Millisecond)))
	assert.Equal(t, []candidate{{Contemplative, 0.6}}, classifyGesture(line(5, 1, 100*time.Millisecond)))
	assert.Empty(t, classifyGesture(line(5, 3, 10*time.Millisecond)))

	zigzag := []Point{
		{X: 0, T: epoch},
		{X: 2, T: epoch.Add(10 * time.Millisecond)},
		{X: 0, T: epoch.Add(20 * time.Millisecond)},
		{X: 2, T: epoch.Add(30 * time.Millisecond)},
	}
	assert.Equal(t, []candidate{{Frustrated, 0.8}}, classifyGesture(zigzag))
}

func drag(h *harness, startMs int, points []Point, release bool) {
	for i, p := range points {
		typ := browser.TypeMouseMove
		if i == 0 {
			typ = browser.TypeMouseDown
		}
		h.at(startMs+i*10, browser.Event{Type: typ, X: p.X, Y: p.Y})
	}
	if release {
		h.at(startMs+len(points)*10, browser.Event{Type: browser.TypeMouseUp})
	}
}

func TestFastDragIsRushed(t *testing.T) {
	h := newHarness(t, nil)

	drag(h, 0, line(6, 20, 0), false)
	require.Len(t, h.changes, 1, "analysis after the fifth move")
	assert.Equal(t, Rushed, h.changes[0].Label)

	h.at(60, browser.Event{Type: browser.TypeMouseUp})
	require.Len(t, h.changes, 2, "whole trail analysed on release")
	assert.Equal(t, Rushed, h.current(t).Label)
	assert.Equal(t, 0.7, h.current(t).Confidence)
}

func TestEveryMovePastTheWindowIsAnalysed(t *testing.T) {
	h := newHarness(t, nil)

	drag(h, 0, line(9, 20, 0), false)

	require.Len(t, h.changes, 4, "points six to nine")
	for _, c := range h.changes {
		assert.Equal(t, Rushed, c.Label)
	}
}

func TestShortGestureIsIgnored(t *testing.T) {
	h := newHarness(t, nil)

	drag(h, 0, line(3, 50, 0), true)
	h.at(500, browser.Event{Type: browser.TypeMouseMove, X: 999})

	assert.Empty(t, h.changes)
}

func TestJitteryDragIsFrustrated(t *testing.T) {
	h := newHarness(t, nil)
	points := []Point{{X: 0}, {X: 3}, {X: 0}, {X: 3}, {X: 0}}

	drag(h, 0, points, true)

	require.Len(t, h.changes, 1)
	assert.Equal(t, Frustrated, h.changes[0].Label)
	assert.Equal(t, 0.8, h.changes[0].Confidence)
}
