package emotion

import "fmt"

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const (
	trajectoryMinSamples = 3
	trajectoryWindow     = 5
	trendThreshold       = 3
	prefetchProbability  = 0.7 // exclusive
	defaultProbability   = 0.5
)

type Transition struct {
	From Label `json:"from"`
	To   Label `json:"to"`
}

type Trajectory struct {
	Dominant    Label        `json:"dominantState"`
	Transitions []Transition `json:"transitions"`
	Trend       Trend        `json:"trend"`
}

type Prediction struct {
	Label       Label   `json:"predictedState,omitempty"`
	Probability float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

type weighted struct {
	label Label
	p     float64
}

// transitions lists the known next states in descending probability.
var transitions = map[Label][]weighted{
	Curious:       {{Engaged, 0.7}, {Contemplative, 0.2}, {Frustrated, 0.1}},
	Contemplative: {{Deciding, 0.6}, {Frustrated, 0.2}, {Confident, 0.2}},
	Deciding:      {{Confident, 0.5}, {Hesitant, 0.3}, {Frustrated, 0.2}},
}

// AnalyzeTrajectory summarizes samples, oldest first.
func AnalyzeTrajectory(samples []Sample) Trajectory {
	t := Trajectory{Trend: TrendStable, Transitions: []Transition{}}
	if len(samples) == 0 {
		return t
	}

	counts := make(map[Label]int)
	lastSeen := make(map[Label]int)
	for i, s := range samples {
		counts[s.Label]++
		lastSeen[s.Label] = i
		if i > 0 {
			t.Transitions = append(t.Transitions, Transition{From: samples[i-1].Label, To: s.Label})
		}
	}
	for label, n := range counts {
		best := counts[t.Dominant]
		if t.Dominant == None || n > best || (n == best && lastSeen[label] > lastSeen[t.Dominant]) {
			t.Dominant = label
		}
	}
	t.Trend = trendOf(samples)
	return t
}

func trendOf(samples []Sample) Trend {
	score := 0
	for i, s := range samples {
		weight := i + 1
		switch s.Label {
		case Engaged, Delighted, Confident:
			score += weight
		case Frustrated, Hesitant:
			score -= weight
		}
	}
	switch {
	case score > trendThreshold:
		return TrendImproving
	case score < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Predict picks the most likely state to follow current.
func Predict(current Label) Prediction {
	next, ok := transitions[current]
	if !ok || len(next) == 0 {
		return Prediction{
			Probability: defaultProbability,
			Reasoning:   fmt.Sprintf("No transition pattern known from %s", current),
		}
	}
	best := next[0]
	for _, w := range next[1:] {
		if w.p > best.p {
			best = w
		}
	}
	return Prediction{
		Label:       best.label,
		Probability: best.p,
		Reasoning:   fmt.Sprintf("Based on transition patterns from %s", current),
	}
}

// analyzeTrajectory runs on the trajectory interval.
func (c *Classifier) analyzeTrajectory() {
	if c.history.len() < trajectoryMinSamples {
		return
	}
	c.trajectory = AnalyzeTrajectory(c.history.tail(trajectoryWindow))

	current, _ := c.history.last()
	prediction := Predict(current.Label)
	c.prediction = &prediction

	if prediction.Label.Valid() && prediction.Probability > prefetchProbability {
		if rules, ok := RulesFor(prediction.Label); ok {
			c.prefetched[prediction.Label] = rules
		}
	}
}
