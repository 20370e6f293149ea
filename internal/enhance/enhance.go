// Package enhance turns a raw script into an enhanced script plus a scene
// plan. An LLM provider produces the plan when configured; a deterministic
// heuristic provider always closes the chain.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/fallback"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/timeline"
)

const stageName = "enhance"

// Result is the outcome of script enhancement.
type Result struct {
	EnhancedText     string
	Scenes           []timeline.Scene
	Keywords         []string
	Mood             string
	DurationEstimate float64
	Provider         string
}

// Config bounds the scene plan.
type Config struct {
	DefaultSceneSeconds float64
	MaxScenes           int
}

func (c Config) sceneSeconds() float64 {
	if c.DefaultSceneSeconds > 0 {
		return c.DefaultSceneSeconds
	}
	return 5
}

func (c Config) maxScenes() int {
	if c.MaxScenes > 0 {
		return c.MaxScenes
	}
	return 12
}

// Completer is the LLM surface the enhancer consumes.
type Completer interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Enhancer runs the enhancement chain.
type Enhancer struct {
	llm    Completer
	cfg    Config
	logger *slog.Logger
}

// New creates an enhancer. llmClient may be nil or unconfigured; the
// heuristic provider then serves alone.
func New(llmClient Completer, cfg Config, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enhancer{llm: llmClient, cfg: cfg, logger: logger}
}

// Enhance produces the scene plan for a script. An empty script is a
// validation error, never routed to the fallback chain.
func (e *Enhancer) Enhance(ctx context.Context, script string) (Result, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "enhance", "script must not be empty", nil)
	}

	var providers []fallback.Provider[Result]
	if e.llm != nil && e.llm.Configured() {
		providers = append(providers, fallback.Provider[Result]{
			Name: "llm",
			Run: func(ctx context.Context) (Result, error) {
				return e.enhanceWithLLM(ctx, script)
			},
		})
	}
	providers = append(providers, fallback.Provider[Result]{
		Name: "heuristic",
		Run: func(ctx context.Context) (Result, error) {
			return e.enhanceHeuristically(script), nil
		},
	})

	outcome, err := fallback.Run(ctx, e.logger, stageName, "enhance", providers)
	if err != nil {
		return Result{}, err
	}
	result := outcome.Value
	result.Provider = outcome.Provider
	return result, nil
}

const llmSystemPrompt = `You are a short-form video script editor. Respond with JSON only, no prose.
Schema:
{
  "enhanced_text": "the full polished script",
  "scenes": [{"text": "...", "visual_description": "...", "visual_keywords": ["..."], "duration": 5.0}],
  "keywords": ["..."],
  "mood": "one or two words",
  "duration_estimate": 60.0
}
Rules: keep the author's meaning, tighten the wording for narration, split into
visually distinct scenes, give each scene a concrete filmable visual_description
and 2-4 search-friendly visual_keywords. Durations are seconds.`

type llmPlanPayload struct {
	EnhancedText     string   `json:"enhanced_text"`
	Scenes           []scene  `json:"scenes"`
	Keywords         []string `json:"keywords"`
	Mood             string   `json:"mood"`
	DurationEstimate float64  `json:"duration_estimate"`
}

type scene struct {
	Text              string   `json:"text"`
	VisualDescription string   `json:"visual_description"`
	VisualKeywords    []string `json:"visual_keywords"`
	Duration          float64  `json:"duration"`
}

func (e *Enhancer) enhanceWithLLM(ctx context.Context, script string) (Result, error) {
	userPrompt := fmt.Sprintf("Script:\n%s\n\nProduce at most %d scenes. Default scene duration is %.1f seconds.",
		script, e.cfg.maxScenes(), e.cfg.sceneSeconds())
	content, err := e.llm.CompleteJSON(ctx, llmSystemPrompt, userPrompt)
	if err != nil {
		return Result{}, services.Wrap(services.ErrProvider, stageName, "enhance", "llm completion failed", err)
	}
	var payload llmPlanPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return Result{}, services.Wrap(services.ErrProvider, stageName, "enhance", "llm returned unparseable plan", err)
	}
	if len(payload.Scenes) == 0 {
		return Result{}, services.Wrap(services.ErrProvider, stageName, "enhance", "llm plan has no scenes", nil)
	}

	if len(payload.Scenes) > e.cfg.maxScenes() {
		payload.Scenes = payload.Scenes[:e.cfg.maxScenes()]
	}
	scenes := make([]timeline.Scene, 0, len(payload.Scenes))
	for _, item := range payload.Scenes {
		duration := item.Duration
		if duration <= 0 {
			duration = e.cfg.sceneSeconds()
		}
		scenes = append(scenes, timeline.Scene{
			Text:              strings.TrimSpace(item.Text),
			VisualDescription: strings.TrimSpace(item.VisualDescription),
			VisualKeywords:    cleanKeywords(item.VisualKeywords),
			Duration:          duration,
		})
	}

	enhanced := strings.TrimSpace(payload.EnhancedText)
	if enhanced == "" {
		enhanced = script
	}
	mood := strings.TrimSpace(payload.Mood)
	if mood == "" {
		mood = defaultMood
	}
	estimate := payload.DurationEstimate
	if estimate <= 0 {
		estimate = timeline.TotalDuration(scenes)
	}
	return Result{
		EnhancedText:     enhanced,
		Scenes:           scenes,
		Keywords:         cleanKeywords(payload.Keywords),
		Mood:             mood,
		DurationEstimate: estimate,
	}, nil
}

func cleanKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}
		cleaned = append(cleaned, keyword)
	}
	return cleaned
}
