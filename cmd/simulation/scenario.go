package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"canvasthink-be/pkg/browser"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted browsing session replayed against a pipeline on a
// manual clock.
type Scenario struct {
	Name         string        `yaml:"name"`
	VisitorID    string        `yaml:"visitor_id"`
	Page         ScenarioPage  `yaml:"page"`
	Capabilities []string      `yaml:"capabilities"`
	Duration     time.Duration `yaml:"duration"`
	Steps        []Step        `yaml:"steps"`
}

type ScenarioPage struct {
	Path      string `yaml:"path"`
	Referrer  string `yaml:"referrer"`
	UserAgent string `yaml:"user_agent"`
}

// Step happens At after the session start. Exactly one of Event, PageView and
// SetState is set.
type Step struct {
	At       time.Duration          `yaml:"at"`
	Event    map[string]interface{} `yaml:"event"`
	PageView string                 `yaml:"pageview"`
	SetState *StateOverride         `yaml:"set_state"`
	Repeat   int                    `yaml:"repeat"`
	Every    time.Duration          `yaml:"every"`
}

type StateOverride struct {
	State      string  `yaml:"state"`
	Confidence float64 `yaml:"confidence"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Page.Path == "" {
		s.Page.Path = "/"
	}
	for i, st := range s.Steps {
		set := 0
		if st.Event != nil {
			set++
		}
		if st.PageView != "" {
			set++
		}
		if st.SetState != nil {
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("step %d: exactly one of event, pageview, set_state required", i)
		}
		if st.Repeat > 1 && st.Every <= 0 {
			return nil, fmt.Errorf("step %d: repeat needs a positive every", i)
		}
	}
	return &s, nil
}

// BrowserCapabilities maps names to browser capabilities; none listed means all.
func (s *Scenario) BrowserCapabilities() []browser.Capability {
	if len(s.Capabilities) == 0 {
		return []browser.Capability{browser.CapabilityHistory, browser.CapabilityIntersection}
	}
	out := make([]browser.Capability, 0, len(s.Capabilities))
	for _, c := range s.Capabilities {
		out = append(out, browser.Capability(c))
	}
	return out
}

// timedStep is one expanded occurrence of a step.
type timedStep struct {
	at   time.Duration
	step Step
}

// timeline expands repeats and orders steps by time. Steps at the same
// instant keep their file order.
func (s *Scenario) timeline() []timedStep {
	var out []timedStep
	for _, st := range s.Steps {
		n := st.Repeat
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, timedStep{at: st.At + time.Duration(i)*st.Every, step: st})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at < out[j].at })
	return out
}

// BrowserEvent reads the event map with the wire field names.
func (st Step) BrowserEvent() (browser.Event, error) {
	var ev browser.Event
	raw, err := json.Marshal(st.Event)
	if err != nil {
		return ev, err
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
