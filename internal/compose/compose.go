// Package compose renders the final video from the paired assets, narration,
// music bed, and caption track.
package compose

import (
	"context"
	"time"

	"reelsmith/internal/timeline"
)

// RenderSpec is everything the compositor needs for one job.
type RenderSpec struct {
	JobID         string
	Scenes        []timeline.Scene
	Assets        []timeline.MediaAsset
	NarrationPath string
	MusicPath     string
	CaptionPath   string
	AspectRatio   string
	OutputDir     string
	WorkDir       string
}

// Compositor renders a spec and returns the output file path.
type Compositor interface {
	Render(ctx context.Context, spec RenderSpec) (string, error)
}

// Config shapes the encode.
type Config struct {
	FFmpegBinary   string
	OutputHeight   int
	FPS            int
	VideoEncoder   string
	EncoderPreset  string
	ConstantRateQP int
	RenderTimeout  time.Duration
}

func (c Config) outputHeight() int {
	if c.OutputHeight > 0 {
		return c.OutputHeight
	}
	return 1920
}

func (c Config) fps() int {
	if c.FPS > 0 {
		return c.FPS
	}
	return 30
}

func (c Config) encoder() string {
	if c.VideoEncoder != "" {
		return c.VideoEncoder
	}
	return "libx264"
}

func (c Config) preset() string {
	if c.EncoderPreset != "" {
		return c.EncoderPreset
	}
	return "medium"
}

func (c Config) crf() int {
	if c.ConstantRateQP > 0 {
		return c.ConstantRateQP
	}
	return 23
}
