package mediapair

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/timeline"
)

type stubCompleter struct {
	configured bool
	content    string
	err        error
}

func (s *stubCompleter) Configured() bool { return s.configured }

func (s *stubCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return s.content, s.err
}

func TestPlanUsesLLMQuery(t *testing.T) {
	planner := NewPlanner(&stubCompleter{
		configured: true,
		content:    `{"query": "city traffic night", "media_type": "video"}`,
	})
	query, err := planner.Plan(context.Background(), timeline.Scene{Text: "Rush hour."})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if query.Text != "city traffic night" || query.Kind != timeline.KindVideo {
		t.Fatalf("query = %+v", query)
	}
}

func TestPlanFallsBackToKeywordJoin(t *testing.T) {
	planner := NewPlanner(&stubCompleter{configured: true, err: errors.New("down")})
	scene := timeline.Scene{
		Text:           "The harbor wakes at dawn.",
		VisualKeywords: []string{"harbor", "sunrise", "boats", "water"},
	}
	query, err := planner.Plan(context.Background(), scene)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if query.Text != "harbor sunrise boats" || query.Kind != timeline.KindPhoto {
		t.Fatalf("query = %+v", query)
	}
}

func TestPlanFallbackWithoutKeywordsUsesSceneText(t *testing.T) {
	planner := NewPlanner(nil)
	query, err := planner.Plan(context.Background(), timeline.Scene{Text: "Markets open across the city today."})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if query.Text != "markets open across the" {
		t.Fatalf("query = %q", query.Text)
	}
}

func TestQueryTrackerSuffixesRepeats(t *testing.T) {
	tracker := newQueryTracker()
	if got := tracker.apply("ocean waves"); got != "ocean waves" {
		t.Fatalf("first use = %q", got)
	}
	if got := tracker.apply("Ocean Waves"); got != "Ocean Waves closeup" {
		t.Fatalf("repeat = %q", got)
	}
	if got := tracker.apply("harbor sunrise"); got != "harbor sunrise" {
		t.Fatalf("distinct query = %q", got)
	}
}
