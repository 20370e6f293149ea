// Package audio produces the narration track: an uploaded recording or
// synthesized speech, loudness normalized, with scene timings resynced to the
// real audio length.
package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/fallback"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

const stageName = "audio"

// FFmpeg is the audio tooling surface the stage consumes.
type FFmpeg interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	GenerateSilence(ctx context.Context, seconds float64, dest string) error
	Normalize(ctx context.Context, src, dest string) error
}

// Synthesizer renders text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, destPath string) error
}

// Result is the narration track plus the resynced scene plan.
type Result struct {
	Path     string
	Duration float64
	Scenes   []timeline.Scene
	Provider string
}

// Stage runs narration production for one job.
type Stage struct {
	tts          Synthesizer
	ffmpeg       FFmpeg
	voiceoverDir string
	logger       *slog.Logger
}

// New creates the audio stage. tts may be nil; the silence fallback then
// closes the chain alone.
func New(tts Synthesizer, ffmpeg FFmpeg, voiceoverDir string, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{tts: tts, ffmpeg: ffmpeg, voiceoverDir: voiceoverDir, logger: logger}
}

// Produce builds the narration for a job. recordingPath takes precedence over
// synthesis; estimate sizes the silent fallback.
func (s *Stage) Produce(ctx context.Context, jobID, script, voice, recordingPath string, scenes []timeline.Scene, estimate float64) (Result, error) {
	if len(scenes) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "produce", "no scenes to narrate", nil)
	}

	jobDir := filepath.Join(s.voiceoverDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrResource, stageName, "produce", "create voiceover directory", err)
	}

	rawPath, provider, err := s.acquireRaw(ctx, jobDir, script, voice, recordingPath, estimate)
	if err != nil {
		return Result{}, err
	}

	normalizedPath := filepath.Join(jobDir, "narration"+filepath.Ext(rawPath))
	if err := s.ffmpeg.Normalize(ctx, rawPath, normalizedPath); err != nil {
		return Result{}, services.Wrap(services.ErrStageFailure, stageName, "normalize", "loudness normalization failed", err)
	}

	duration, err := s.ffmpeg.ProbeDuration(ctx, normalizedPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrStageFailure, stageName, "probe", "probe narration duration", err)
	}

	return Result{
		Path:     normalizedPath,
		Duration: duration,
		Scenes:   Resync(scenes, duration),
		Provider: provider,
	}, nil
}

func (s *Stage) acquireRaw(ctx context.Context, jobDir, script, voice, recordingPath string, estimate float64) (string, string, error) {
	if strings.TrimSpace(recordingPath) != "" {
		rawPath := filepath.Join(jobDir, "raw"+filepath.Ext(recordingPath))
		if err := copyFile(recordingPath, rawPath); err != nil {
			return "", "", services.Wrap(services.ErrValidation, stageName, "intake", "uploaded recording unreadable", err)
		}
		return rawPath, "recording", nil
	}

	rawPath := filepath.Join(jobDir, "raw.mp3")
	var providers []fallback.Provider[string]
	if s.tts != nil {
		providers = append(providers, fallback.Provider[string]{
			Name: "tts",
			Run: func(ctx context.Context) (string, error) {
				if err := s.tts.Synthesize(ctx, script, voice, rawPath); err != nil {
					return "", services.Wrap(services.ErrProvider, stageName, "synthesize", "tts synthesis failed", err)
				}
				return rawPath, nil
			},
		})
	}
	providers = append(providers, fallback.Provider[string]{
		Name: "silence",
		Run: func(ctx context.Context) (string, error) {
			seconds := estimate
			if seconds <= 0 {
				seconds = 5
			}
			if err := s.ffmpeg.GenerateSilence(ctx, seconds, rawPath); err != nil {
				return "", services.Wrap(services.ErrStageFailure, stageName, "synthesize", "silence generation failed", err)
			}
			return rawPath, nil
		},
	})

	outcome, err := fallback.Run(ctx, s.logger, stageName, "synthesize", providers)
	if err != nil {
		return "", "", err
	}
	return outcome.Value, outcome.Provider, nil
}

// Resync divides the narration duration evenly across scenes. The remainder
// goes to the last scene so the windows sum to the total exactly.
func Resync(scenes []timeline.Scene, total float64) []timeline.Scene {
	if len(scenes) == 0 || total <= 0 {
		return scenes
	}
	per := total / float64(len(scenes))
	resynced := make([]timeline.Scene, len(scenes))
	for i, scene := range scenes {
		start := per * float64(i)
		end := per * float64(i+1)
		if i == len(scenes)-1 {
			end = total
		}
		scene.AudioStart = start
		scene.AudioEnd = end
		scene.Duration = end - start
		resynced[i] = scene
	}
	return resynced
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
