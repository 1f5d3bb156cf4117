package emotion

import (
	"math"
	"time"

	"canvasthink-be/pkg/browser"
)

const (
	rushedVelocity        = 500.0 // px/s
	contemplativeVelocity = 100.0 // px/s
	frustratedSmoothness  = 0.3

	gestureWindow    = 5
	minFinalGesture  = 4
	maxGesturePoints = 100
)

// Point is one pointer sample of a gesture.
type Point struct {
	X float64   `json:"x"`
	Y float64   `json:"y"`
	T time.Time `json:"timestamp"`
}

// Velocities returns the speed between consecutive points in px/s. A zero
// time delta counts as one millisecond.
func Velocities(points []Point) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		dy := points[i].Y - points[i-1].Y
		dt := points[i].T.Sub(points[i-1].T).Seconds()
		if dt <= 0 {
			dt = 0.001
		}
		out = append(out, math.Hypot(dx, dy)/dt)
	}
	return out
}

// Smoothness is 1 minus the cumulative turning angle normalized by its
// maximum, so a straight line scores 1 and constant reversals score 0.
func Smoothness(points []Point) float64 {
	if len(points) < 3 {
		return 1
	}
	var turn float64
	for i := 2; i < len(points); i++ {
		a1 := math.Atan2(points[i-1].Y-points[i-2].Y, points[i-1].X-points[i-2].X)
		a2 := math.Atan2(points[i].Y-points[i-1].Y, points[i].X-points[i-1].X)
		diff := math.Abs(a2 - a1)
		if diff > math.Pi {
			diff = 2*math.Pi - diff
		}
		turn += diff
	}
	return 1 - turn/(math.Pi*float64(len(points)-2))
}

type candidate struct {
	label      Label
	confidence float64
}

// classifyGesture maps a gesture to zero, one or two candidates.
func classifyGesture(points []Point) []candidate {
	velocities := Velocities(points)
	if len(velocities) == 0 {
		return nil
	}
	var sum float64
	for _, v := range velocities {
		sum += v
	}
	avg := sum / float64(len(velocities))

	var out []candidate
	switch {
	case avg > rushedVelocity:
		out = append(out, candidate{Rushed, 0.7})
	case avg < contemplativeVelocity:
		out = append(out, candidate{Contemplative, 0.6})
	}
	if Smoothness(points) < frustratedSmoothness {
		out = append(out, candidate{Frustrated, 0.8})
	}
	return out
}

type gestureTracker struct {
	active bool
	points []Point
}

// Attach subscribes the gesture recognizer to mouse down, move and up.
func (c *Classifier) Attach(src browser.Source) {
	src.On(browser.TypeMouseDown, c.onMouseDown)
	src.On(browser.TypeMouseMove, c.onMouseMove)
	src.On(browser.TypeMouseUp, c.onMouseUp)
}

func (c *Classifier) onMouseDown(ev browser.Event) {
	c.gesture = gestureTracker{
		active: true,
		points: []Point{{X: ev.X, Y: ev.Y, T: c.scheduler.Now()}},
	}
}

func (c *Classifier) onMouseMove(ev browser.Event) {
	g := &c.gesture
	if !g.active {
		return
	}
	g.points = append(g.points, Point{X: ev.X, Y: ev.Y, T: c.scheduler.Now()})
	if len(g.points) > maxGesturePoints {
		g.points = append([]Point(nil), g.points[len(g.points)-maxGesturePoints/2:]...)
	}
	// Every move past the first window re-reads the newest points.
	if len(g.points) > gestureWindow {
		c.applyCandidates(classifyGesture(g.points[len(g.points)-gestureWindow:]))
	}
}

func (c *Classifier) onMouseUp(ev browser.Event) {
	g := c.gesture
	c.gesture = gestureTracker{}
	if !g.active || len(g.points) < minFinalGesture {
		return
	}
	c.applyCandidates(classifyGesture(g.points))
}
