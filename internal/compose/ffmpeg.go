package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// FFmpegCompositor renders specs by building per-scene clips, concatenating
// them, and muxing audio and captions in a final encode.
type FFmpegCompositor struct {
	cfg    Config
	logger *slog.Logger
	runner Runner
}

var _ Compositor = (*FFmpegCompositor)(nil)

// NewFFmpegCompositor creates the default compositor.
func NewFFmpegCompositor(cfg Config, logger *slog.Logger) *FFmpegCompositor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	return &FFmpegCompositor{cfg: cfg, logger: logger}
}

// WithRunner sets a custom command runner (for testing).
func (c *FFmpegCompositor) WithRunner(runner Runner) {
	c.runner = runner
}

func (c *FFmpegCompositor) run(ctx context.Context, args ...string) error {
	if c.runner != nil {
		_, err := c.runner(ctx, c.cfg.FFmpegBinary, args...)
		return err
	}
	cmd := exec.CommandContext(ctx, c.cfg.FFmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.cfg.FFmpegBinary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Render builds the output video and returns its path.
func (c *FFmpegCompositor) Render(ctx context.Context, spec RenderSpec) (string, error) {
	if err := validateSpec(spec); err != nil {
		return "", err
	}
	if c.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RenderTimeout)
		defer cancel()
	}

	workDir := filepath.Join(spec.WorkDir, spec.JobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrResource, "composite", "render", "create work directory", err)
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrResource, "composite", "render", "create output directory", err)
	}

	width, height := c.dimensions(spec.AspectRatio)

	clipPaths := make([]string, len(spec.Scenes))
	for i, scene := range spec.Scenes {
		clipPath := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := c.renderClip(ctx, spec.Assets[i], scene, width, height, clipPath); err != nil {
			return "", services.Wrap(services.ErrStageFailure, "composite", "render",
				fmt.Sprintf("render scene %d clip", i), err)
		}
		clipPaths[i] = clipPath
	}

	concatPath := filepath.Join(workDir, "visual.mp4")
	if err := c.concatClips(ctx, clipPaths, workDir, concatPath); err != nil {
		return "", services.Wrap(services.ErrStageFailure, "composite", "render", "concatenate clips", err)
	}

	outputPath := filepath.Join(spec.OutputDir, spec.JobID+"_video.mp4")
	if err := c.finalMux(ctx, spec, concatPath, outputPath); err != nil {
		return "", services.Wrap(services.ErrStageFailure, "composite", "render", "final encode", err)
	}
	return outputPath, nil
}

func validateSpec(spec RenderSpec) error {
	if len(spec.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, "composite", "render", "no scenes to render", nil)
	}
	if len(spec.Assets) != len(spec.Scenes) {
		return services.Wrap(services.ErrValidation, "composite", "render",
			fmt.Sprintf("asset count %d does not match scene count %d", len(spec.Assets), len(spec.Scenes)), nil)
	}
	if strings.TrimSpace(spec.NarrationPath) == "" {
		return services.Wrap(services.ErrValidation, "composite", "render", "narration path required", nil)
	}
	if strings.TrimSpace(spec.OutputDir) == "" || strings.TrimSpace(spec.WorkDir) == "" {
		return services.Wrap(services.ErrValidation, "composite", "render", "output and work directories required", nil)
	}
	return nil
}

// dimensions derives even output dimensions from the configured height and
// the job's aspect ratio (defaults to 9:16 portrait).
func (c *FFmpegCompositor) dimensions(aspect string) (int, int) {
	height := c.cfg.outputHeight()
	ratioW, ratioH := 9, 16
	parts := strings.SplitN(strings.TrimSpace(aspect), ":", 2)
	if len(parts) == 2 {
		if w, err := strconv.Atoi(parts[0]); err == nil && w > 0 {
			if h, err := strconv.Atoi(parts[1]); err == nil && h > 0 {
				ratioW, ratioH = w, h
			}
		}
	}
	width := height * ratioW / ratioH
	if width%2 != 0 {
		width++
	}
	if height%2 != 0 {
		height++
	}
	return width, height
}

func (c *FFmpegCompositor) renderClip(ctx context.Context, asset timeline.MediaAsset, scene timeline.Scene, width, height int, clipPath string) error {
	duration := scene.Duration
	if duration <= 0 {
		duration = 5
	}

	scaleFilter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width, height, width, height)
	fpsFilter := fmt.Sprintf("fps=%d", c.cfg.fps())

	args := []string{"-y"}
	var filters []string
	if asset.Kind == timeline.KindVideo {
		args = append(args, "-stream_loop", "-1", "-i", asset.Path)
		if speed := asset.Metadata.PlaybackSpeed; speed > 0 && speed != 1.0 {
			filters = append(filters, fmt.Sprintf("setpts=PTS/%s", formatFloat(speed)))
		}
	} else {
		args = append(args, "-loop", "1", "-i", asset.Path)
	}
	filters = append(filters, scaleFilter, fpsFilter)

	args = append(args,
		"-t", formatFloat(duration),
		"-vf", strings.Join(filters, ","),
		"-an",
		"-c:v", c.cfg.encoder(),
		"-preset", c.cfg.preset(),
		"-crf", strconv.Itoa(c.cfg.crf()),
		"-pix_fmt", "yuv420p",
		clipPath,
	)
	return c.run(ctx, args...)
}

func (c *FFmpegCompositor) concatClips(ctx context.Context, clipPaths []string, workDir, concatPath string) error {
	var list strings.Builder
	for _, clip := range clipPaths {
		list.WriteString("file '" + clip + "'\n")
	}
	listPath := filepath.Join(workDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return c.run(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		concatPath,
	)
}

func (c *FFmpegCompositor) finalMux(ctx context.Context, spec RenderSpec, visualPath, outputPath string) error {
	args := []string{"-y", "-i", visualPath, "-i", spec.NarrationPath}
	hasMusic := strings.TrimSpace(spec.MusicPath) != ""
	if hasMusic {
		args = append(args, "-i", spec.MusicPath)
	}

	var filterParts []string
	audioLabel := "1:a"
	if hasMusic {
		filterParts = append(filterParts, "[1:a][2:a]amix=inputs=2:duration=first:dropout_transition=2[aout]")
		audioLabel = "[aout]"
	}
	if strings.TrimSpace(spec.CaptionPath) != "" {
		filterParts = append(filterParts, fmt.Sprintf("[0:v]ass=%s[vout]", escapeFilterPath(spec.CaptionPath)))
	}

	videoLabel := "0:v"
	if strings.TrimSpace(spec.CaptionPath) != "" {
		videoLabel = "[vout]"
	}

	if len(filterParts) > 0 {
		args = append(args, "-filter_complex", strings.Join(filterParts, ";"))
		args = append(args, "-map", videoLabel, "-map", audioLabel)
	} else {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}

	args = append(args,
		"-c:v", c.cfg.encoder(),
		"-preset", c.cfg.preset(),
		"-crf", strconv.Itoa(c.cfg.crf()),
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	)
	return c.run(ctx, args...)
}

// escapeFilterPath quotes characters the ass filter treats specially.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	return strings.ReplaceAll(path, "'", `\'`)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
