// Package ffmpeg wraps the ffmpeg and ffprobe binaries for the audio, music,
// and media pairing stages. Rendering the final video lives in the compositor,
// which builds its own filter graphs on top of the same runner contract.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Default binary names resolved through PATH.
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
)

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Service provides probing, silence generation, loudness normalization, music
// conditioning, and frame extraction.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	runner        Runner
}

// NewService creates an ffmpeg service. Empty binary names fall back to the
// PATH defaults.
func NewService(ffmpegBinary, ffprobeBinary string) *Service {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = FFmpegCommand
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = FFprobeCommand
	}
	return &Service{ffmpegBinary: ffmpegBinary, ffprobeBinary: ffprobeBinary}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner Runner) {
	s.runner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// ProbeDuration returns the media duration in seconds.
func (s *Service) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("probe: path required")
	}
	output, err := s.run(ctx, s.ffprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	trimmed := strings.TrimSpace(output)
	duration, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: parse %q: %w", trimmed, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("probe duration: non-positive duration %f", duration)
	}
	return duration, nil
}

// GenerateSilence writes a silent audio file of the requested length.
func (s *Service) GenerateSilence(ctx context.Context, seconds float64, dest string) error {
	if seconds <= 0 {
		return errors.New("silence: duration must be positive")
	}
	if err := ensureParent(dest); err != nil {
		return err
	}
	_, err := s.run(ctx, s.ffmpegBinary,
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", formatFloat(seconds),
		"-q:a", "9",
		dest,
	)
	if err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}
	return nil
}

// Normalize applies single-pass loudness normalization targeting the
// streaming loudness standard.
func (s *Service) Normalize(ctx context.Context, src, dest string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("normalize: src and dest required")
	}
	if err := ensureParent(dest); err != nil {
		return err
	}
	_, err := s.run(ctx, s.ffmpegBinary,
		"-y",
		"-i", src,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-ar", "44100",
		dest,
	)
	if err != nil {
		return fmt.Errorf("normalize audio: %w", err)
	}
	return nil
}

// MusicOptions shapes a background music track for mixing under narration.
type MusicOptions struct {
	Duration       float64
	VolumeDB       float64
	FadeInSeconds  float64
	FadeOutSeconds float64
}

// ConditionMusic loops or trims the track to the narration length, applies
// fades, and attenuates it so it sits under the voiceover.
func (s *Service) ConditionMusic(ctx context.Context, src, dest string, opts MusicOptions) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("condition music: src and dest required")
	}
	if opts.Duration <= 0 {
		return errors.New("condition music: duration must be positive")
	}
	if err := ensureParent(dest); err != nil {
		return err
	}

	filters := []string{}
	if opts.FadeInSeconds > 0 {
		filters = append(filters, fmt.Sprintf("afade=t=in:st=0:d=%s", formatFloat(opts.FadeInSeconds)))
	}
	if opts.FadeOutSeconds > 0 {
		fadeStart := opts.Duration - opts.FadeOutSeconds
		if fadeStart < 0 {
			fadeStart = 0
		}
		filters = append(filters, fmt.Sprintf("afade=t=out:st=%s:d=%s", formatFloat(fadeStart), formatFloat(opts.FadeOutSeconds)))
	}
	filters = append(filters, fmt.Sprintf("volume=%sdB", formatFloat(opts.VolumeDB)))

	_, err := s.run(ctx, s.ffmpegBinary,
		"-y",
		"-stream_loop", "-1",
		"-i", src,
		"-t", formatFloat(opts.Duration),
		"-af", strings.Join(filters, ","),
		"-ar", "44100",
		dest,
	)
	if err != nil {
		return fmt.Errorf("condition music: %w", err)
	}
	return nil
}

// ExtractFrame grabs a single frame at the given offset as a JPEG, used for
// vision verification of video candidates.
func (s *Service) ExtractFrame(ctx context.Context, src string, atSeconds float64, dest string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dest) == "" {
		return errors.New("extract frame: src and dest required")
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	if err := ensureParent(dest); err != nil {
		return err
	}
	_, err := s.run(ctx, s.ffmpegBinary,
		"-y",
		"-ss", formatFloat(atSeconds),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "3",
		dest,
	)
	if err != nil {
		return fmt.Errorf("extract frame: %w", err)
	}
	return nil
}

func ensureParent(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return errors.New("destination path required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	return nil
}

// formatFloat renders a float for ffmpeg arguments without exponent
// notation and without trailing zero noise.
func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
