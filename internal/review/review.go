// Package review asks the LLM for an advisory quality score on a finished
// render. The score is logged with the job; it never gates completion.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services/llm"
)

// Completer is the LLM surface the reviewer consumes.
type Completer interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the advisory review outcome. Skipped is set when no review could
// be produced; that is never an error for the job.
type Result struct {
	Score       float64
	Suggestions []string
	Skipped     bool
}

// Reviewer runs the quality review.
type Reviewer struct {
	llm    Completer
	logger *slog.Logger
}

// New creates a reviewer. llmClient may be nil.
func New(llmClient Completer, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reviewer{llm: llmClient, logger: logger}
}

const reviewSystemPrompt = `You review short-form narrated videos from their production summary.
Respond with JSON only: {"score": 0-10, "suggestions": ["...", "..."]}.
Score 10 means broadcast ready. Suggestions are short and actionable; at most three.`

type reviewPayload struct {
	Score       float64  `json:"score"`
	Suggestions []string `json:"suggestions"`
}

// Review scores the finished job. Any failure downgrades to a skipped review.
func (r *Reviewer) Review(ctx context.Context, script string, sceneCount int, durationSeconds float64, captionProvider, audioProvider string) Result {
	if r.llm == nil || !r.llm.Configured() {
		return Result{Skipped: true}
	}

	userPrompt := fmt.Sprintf(
		"Script:\n%s\n\nProduction: %d scenes, %.1f seconds of narration, captions from %s, audio from %s.",
		script, sceneCount, durationSeconds, captionProvider, audioProvider)
	content, err := r.llm.CompleteJSON(ctx, reviewSystemPrompt, userPrompt)
	if err != nil {
		r.logger.Warn("quality review unavailable", logging.Error(err))
		return Result{Skipped: true}
	}
	var payload reviewPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		r.logger.Warn("quality review unparseable", logging.Error(err))
		return Result{Skipped: true}
	}

	if payload.Score < 0 {
		payload.Score = 0
	}
	if payload.Score > 10 {
		payload.Score = 10
	}
	suggestions := make([]string, 0, len(payload.Suggestions))
	for _, suggestion := range payload.Suggestions {
		if suggestion = strings.TrimSpace(suggestion); suggestion != "" {
			suggestions = append(suggestions, suggestion)
		}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return Result{Score: payload.Score, Suggestions: suggestions}
}
