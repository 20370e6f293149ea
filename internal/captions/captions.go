// Package captions builds the styled caption track for a job and emits the
// .ass subtitle file the compositor burns in.
package captions

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"reelsmith/internal/fallback"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/whisper"
	"reelsmith/internal/timeline"
)

const stageName = "captions"

// Transcriber is the word-timing surface the stage consumes.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, outputDir string) ([]whisper.Segment, error)
}

// Config bounds caption generation.
type Config struct {
	CaptionDir         string
	MaxWordsPerCaption int
}

func (c Config) maxWords() int {
	if c.MaxWordsPerCaption > 0 {
		return c.MaxWordsPerCaption
	}
	return 3
}

// Result is the validated caption track plus the subtitle file.
type Result struct {
	Captions []timeline.Caption
	ASSPath  string
	Provider string
}

// Stage runs caption production for one job.
type Stage struct {
	transcriber Transcriber
	cfg         Config
	logger      *slog.Logger
}

// New creates the caption stage. transcriber may be nil; the script-timed
// fallback then serves alone.
func New(transcriber Transcriber, cfg Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{transcriber: transcriber, cfg: cfg, logger: logger}
}

// Produce builds the caption track: transcribed word timings when available,
// otherwise script text spread evenly over each scene's audio window. The
// track is styled, validated, and written as an .ass file.
func (s *Stage) Produce(ctx context.Context, jobID, audioPath string, scenes []timeline.Scene, audioDuration float64, styleName string) (Result, error) {
	if audioDuration <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "produce", "audio duration must be positive", nil)
	}

	var providers []fallback.Provider[[]timeline.Caption]
	if s.transcriber != nil {
		providers = append(providers, fallback.Provider[[]timeline.Caption]{
			Name: "whisperx",
			Run: func(ctx context.Context) ([]timeline.Caption, error) {
				return s.transcribe(ctx, jobID, audioPath)
			},
		})
	}
	providers = append(providers, fallback.Provider[[]timeline.Caption]{
		Name: "script",
		Run: func(ctx context.Context) ([]timeline.Caption, error) {
			return scriptTimed(scenes, s.cfg.maxWords()), nil
		},
	})

	outcome, err := fallback.Run(ctx, s.logger, stageName, "produce", providers)
	if err != nil {
		return Result{}, err
	}

	profile := timeline.ResolveStyleOrDefault(styleName)
	track := styleTrack(outcome.Value, profile, audioDuration)
	if err := timeline.ValidateTrack(track, audioDuration); err != nil {
		return Result{}, services.Wrap(services.ErrStageFailure, stageName, "validate", "caption track invalid", err)
	}

	assPath := filepath.Join(s.cfg.CaptionDir, jobID+".ass")
	if err := writeASS(assPath, track, profile); err != nil {
		return Result{}, services.Wrap(services.ErrResource, stageName, "write", "write subtitle file", err)
	}

	return Result{Captions: track, ASSPath: assPath, Provider: outcome.Provider}, nil
}

func (s *Stage) transcribe(ctx context.Context, jobID, audioPath string) ([]timeline.Caption, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrProvider, stageName, "transcribe", "no audio to transcribe", nil)
	}
	outputDir := filepath.Join(s.cfg.CaptionDir, jobID)
	segments, err := s.transcriber.Transcribe(ctx, audioPath, outputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "transcribe", "transcription failed", err)
	}
	words := whisper.Words(segments)
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrProvider, stageName, "transcribe", "transcript has no word timings", nil)
	}
	return groupWords(words, s.cfg.maxWords()), nil
}

// styleTrack applies the profile transform and style name, sorts the track,
// and clamps caption ends to the audio duration.
func styleTrack(track []timeline.Caption, profile timeline.StyleProfile, audioDuration float64) []timeline.Caption {
	styled := make([]timeline.Caption, 0, len(track))
	for _, caption := range track {
		caption.Text = profile.ApplyTransform(strings.TrimSpace(caption.Text))
		if caption.Text == "" {
			continue
		}
		caption.Style = profile.Name
		if caption.End > audioDuration {
			caption.End = audioDuration
		}
		if caption.End <= caption.Start {
			continue
		}
		styled = append(styled, caption)
	}
	timeline.SortCaptions(styled)
	return styled
}
