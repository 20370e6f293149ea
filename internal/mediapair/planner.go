package mediapair

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/timeline"
)

// Query is a planned media search for one scene.
type Query struct {
	Text string
	Kind timeline.MediaKind
}

// Completer is the LLM surface the planner consumes.
type Completer interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Planner turns scenes into targeted search queries. It is stateless and
// shared across jobs; per-job query variety lives in a queryTracker owned by
// the pairing run.
type Planner struct {
	llm Completer
}

// NewPlanner creates a planner. llmClient may be nil.
func NewPlanner(llmClient Completer) *Planner {
	return &Planner{llm: llmClient}
}

const plannerSystemPrompt = `You pick stock footage search queries for short-form video scenes.
Respond with JSON only: {"query": "2-4 concrete visual words", "media_type": "photo" or "video"}.
Rules:
- Describe what the camera sees, not abstract ideas. "team meeting office" not "collaboration success".
- Prefer video for motion (people, traffic, water), photo for static subjects.
- Never include style words like "beautiful" or "amazing".`

type plannerPayload struct {
	Query     string `json:"query"`
	MediaType string `json:"media_type"`
}

// Plan produces the search query for one scene. The LLM plan is used when
// available; otherwise the scene's visual keywords are joined.
func (p *Planner) Plan(ctx context.Context, scene timeline.Scene) (Query, error) {
	if p.llm != nil && p.llm.Configured() {
		if query, err := p.planWithLLM(ctx, scene); err == nil {
			return query, nil
		} else if services.IsTerminal(err) {
			return Query{}, err
		}
	}
	return fallbackQuery(scene), nil
}

func (p *Planner) planWithLLM(ctx context.Context, scene timeline.Scene) (Query, error) {
	userPrompt := fmt.Sprintf("Scene narration: %s\nVisual description: %s\nKeywords: %s",
		scene.Text, scene.VisualDescription, strings.Join(scene.VisualKeywords, ", "))
	content, err := p.llm.CompleteJSON(ctx, plannerSystemPrompt, userPrompt)
	if err != nil {
		return Query{}, services.Wrap(services.ErrProvider, stageName, "plan", "llm query planning failed", err)
	}
	var payload plannerPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Query{}, services.Wrap(services.ErrProvider, stageName, "plan", "llm returned unparseable query", err)
	}
	text := strings.TrimSpace(payload.Query)
	if text == "" {
		return Query{}, services.Wrap(services.ErrProvider, stageName, "plan", "llm returned empty query", nil)
	}
	kind := timeline.KindPhoto
	if strings.EqualFold(strings.TrimSpace(payload.MediaType), string(timeline.KindVideo)) {
		kind = timeline.KindVideo
	}
	return Query{Text: text, Kind: kind}, nil
}

// fallbackQuery joins the scene's visual keywords, falling back to the first
// words of the scene text when no keywords exist.
func fallbackQuery(scene timeline.Scene) Query {
	if len(scene.VisualKeywords) > 0 {
		limit := len(scene.VisualKeywords)
		if limit > 3 {
			limit = 3
		}
		return Query{Text: strings.Join(scene.VisualKeywords[:limit], " "), Kind: timeline.KindPhoto}
	}
	fields := strings.Fields(scene.Text)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	text := strings.ToLower(strings.Join(fields, " "))
	if text == "" {
		text = "abstract background"
	}
	return Query{Text: text, Kind: timeline.KindPhoto}
}

// queryTracker scopes query variety to a single job: the first use of a
// query passes through, repeats get a suffix so two scenes in the same job
// never fetch the same asset. Each Pair call creates its own tracker, so
// queries used by one job never influence another.
type queryTracker struct {
	mu   sync.Mutex
	used map[string]int
}

func newQueryTracker() *queryTracker {
	return &queryTracker{used: make(map[string]int)}
}

func (t *queryTracker) apply(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	t.mu.Lock()
	defer t.mu.Unlock()
	count := t.used[normalized]
	t.used[normalized] = count + 1
	if count == 0 {
		return query
	}
	return query + " closeup"
}
