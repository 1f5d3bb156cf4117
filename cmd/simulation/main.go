package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"canvasthink-be/internal/pkg/logger"
	"canvasthink-be/pkg/analytics"
	"canvasthink-be/pkg/behavior"
	"canvasthink-be/pkg/browser"
	"canvasthink-be/pkg/clock"
	"canvasthink-be/pkg/emotion"
	"canvasthink-be/pkg/store"
	"canvasthink-be/pkg/tracking"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var simulationEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simulation",
		Short:         "Replay scripted browsing sessions through the tracking pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newLabelsCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var sessions int
	var asJSON, verbose bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print the interaction and emotion timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			var log logger.ILogger = logger.NewNopLogger()
			if verbose {
				log = logger.NewZapLogger("logs/simulation.log", false)
			}

			// One store across runs so later sessions restore earlier contexts.
			contexts := store.NewMemoryStore(time.Hour)
			var reports []*Report
			for i := 0; i < sessions; i++ {
				r, err := Run(cmd.Context(), sc, i+1, contexts, log)
				if err != nil {
					return err
				}
				reports = append(reports, r)
				if !asJSON {
					r.Print()
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sessions, "sessions", 1, "number of consecutive sessions for the same visitor")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "write pipeline logs to logs/simulation.log")
	return cmd
}

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the emotional states and the classes their adaptations apply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, l := range emotion.Labels() {
				rules, _ := emotion.RulesFor(l)
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", color.CyanString(l.String()), strings.Join(rules.Classes(), " "))
			}
			return nil
		},
	}
}

// Line is one entry of the printed timeline.
type Line struct {
	At     time.Duration `json:"at"`
	Kind   string        `json:"kind"`
	Detail string        `json:"detail"`
}

type Report struct {
	Scenario string             `json:"scenario"`
	Session  int                `json:"session"`
	Timeline []Line             `json:"timeline"`
	Summary  behavior.Summary   `json:"summary"`
	Insights emotion.Insights   `json:"insights"`
	Forecast *tracking.Forecast `json:"forecast,omitempty"`
}

// Run replays sc once as session number n.
func Run(ctx context.Context, sc *Scenario, n int, contexts emotion.ContextStore, log logger.ILogger) (*Report, error) {
	clk := clock.NewManual(simulationEpoch.Add(time.Duration(n-1) * 24 * time.Hour))
	start := clk.Now()
	visitorID := sc.VisitorID
	if visitorID == "" {
		visitorID = "simulated-visitor"
	}

	p := tracking.New(tracking.Config{
		SessionID:          fmt.Sprintf("sim_%d", n),
		VisitorID:          visitorID,
		Page:               browser.Page{Path: sc.Page.Path, Referrer: sc.Page.Referrer, UserAgent: sc.Page.UserAgent},
		Capabilities:       sc.BrowserCapabilities(),
		TrajectoryInterval: 5 * time.Second,
		PersistInterval:    30 * time.Second,
	}, clk, analytics.FanOut{}, contexts, log)

	report := &Report{Scenario: sc.Name, Session: n}
	add := func(kind, detail string) {
		report.Timeline = append(report.Timeline, Line{At: clk.Now().Sub(start), Kind: kind, Detail: detail})
	}
	p.OnInteraction(func(ev behavior.InteractionOccurred) {
		add("interaction", describeRecord(ev.Record))
	})
	p.OnStateChanged(func(ev emotion.StateChanged) {
		add("state", fmt.Sprintf("%s (%.2f) from %s", ev.Label, ev.Confidence, orNone(ev.PreviousLabel)))
	})
	p.OnAdaptation(func(ev emotion.AdaptationAvailable) {
		add("adaptation", strings.Join(ev.Classes, " "))
	})
	p.OnPreferences(func(ev emotion.PreferencesApplied) {
		add("preferences", fmt.Sprintf("%s %s", ev.Style, strings.Join(ev.Classes, " ")))
	})

	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	for _, ts := range sc.timeline() {
		clk.Set(start.Add(ts.at))
		if err := apply(p, ts.step); err != nil {
			return nil, fmt.Errorf("at %s: %w", ts.at, err)
		}
	}
	if end := start.Add(sc.Duration); end.After(clk.Now()) {
		clk.Set(end)
	}

	report.Summary = p.Summary()
	report.Insights = p.Insights()
	if f, ok := p.Forecast(); ok {
		report.Forecast = &f
	}
	if err := p.Stop(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func apply(p *tracking.Pipeline, st Step) error {
	switch {
	case st.Event != nil:
		ev, err := st.BrowserEvent()
		if err != nil {
			return err
		}
		_, err = p.Dispatch(ev)
		return err
	case st.PageView != "":
		return p.RecordPageView(st.PageView)
	default:
		label, err := emotion.ParseLabel(st.SetState.State)
		if err != nil {
			return err
		}
		return p.SetState(label, st.SetState.Confidence)
	}
}

func describeRecord(r behavior.Record) string {
	d := r.Payload
	switch r.Kind {
	case behavior.KindPageView, behavior.KindNavigation:
		return fmt.Sprintf("%s %s", r.Kind, d.Path)
	case behavior.KindScrollSession:
		return fmt.Sprintf("%s max depth %d%%", r.Kind, d.MaxDepth)
	case behavior.KindScrollMilestone:
		return fmt.Sprintf("%s %d%%", r.Kind, d.Milestone)
	case behavior.KindClick:
		return fmt.Sprintf("%s <%s>", r.Kind, strings.ToLower(d.TagName))
	case behavior.KindProductView, behavior.KindPurchaseIntent:
		return fmt.Sprintf("%s %s %s", r.Kind, d.ProductID, d.Action)
	}
	return string(r.Kind)
}

func orNone(l emotion.Label) string {
	if l == emotion.None {
		return "none"
	}
	return l.String()
}

func (r *Report) Print() {
	color.Cyan("\n=== %s (session %d) ===", r.Scenario, r.Session)
	for _, line := range r.Timeline {
		at := fmt.Sprintf("%8s", line.At.Truncate(time.Millisecond))
		switch line.Kind {
		case "state":
			color.Yellow("%s  state       %s", at, line.Detail)
		case "adaptation":
			color.Magenta("%s  adaptation  %s", at, line.Detail)
		case "preferences":
			color.Blue("%s  preferences %s", at, line.Detail)
		default:
			fmt.Printf("%s  %s\n", at, line.Detail)
		}
	}
	color.Green("interactions=%d engagement=%d duration=%dms",
		r.Summary.TotalInteractions, r.Summary.EngagementScore, r.Summary.SessionDurationMs)
	if cur := r.Insights.Current; cur != nil {
		color.Green("current state: %s (%.2f)", cur.Label, cur.Confidence)
	}
	if r.Forecast != nil {
		color.Green("forecast: %s (%.2f) trend=%s", orNone(r.Forecast.Prediction.Label), r.Forecast.Prediction.Probability, r.Forecast.Trajectory.Trend)
	}
}
