// Package deps reports the availability of the external tools and credentials
// reelsmith depends on at runtime.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reelsmith/internal/config"
)

// Requirement defines an external dependency reelsmith relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the dependency list from configuration. Binaries with
// graceful fallbacks in the pipeline are marked optional.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg := "ffmpeg"
	ffprobe := "ffprobe"
	whisperx := "whisperx"
	if cfg != nil {
		if v := strings.TrimSpace(cfg.Compositor.FFmpegBinary); v != "" {
			ffmpeg = v
		}
		if v := strings.TrimSpace(cfg.Compositor.FFprobeBinary); v != "" {
			ffprobe = v
		}
		if v := strings.TrimSpace(cfg.Transcribe.Binary); v != "" {
			whisperx = v
		}
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Renders clips and the final video"},
		{Name: "FFprobe", Command: ffprobe, Description: "Measures narration duration"},
		{Name: "WhisperX", Command: whisperx, Description: "Word-level caption timing", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if resolved, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		} else {
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// CheckCredentials reports which provider keys are configured. Every provider
// is optional because each stage carries a keyless fallback.
func CheckCredentials(cfg *config.Config) []Status {
	if cfg == nil {
		return nil
	}
	entries := []struct {
		name        string
		description string
		configured  bool
	}{
		{"LLM API", "Script enhancement, query planning, review", strings.TrimSpace(cfg.LLM.APIKey) != ""},
		{"TTS API", "Narration synthesis", strings.TrimSpace(cfg.TTS.APIKey) != ""},
		{"Pexels", "Stock photo and video search", strings.TrimSpace(cfg.Media.PexelsAPIKey) != ""},
		{"Pixabay", "Stock photo and video search", strings.TrimSpace(cfg.Media.PixabayAPIKey) != ""},
	}
	results := make([]Status, 0, len(entries))
	for _, entry := range entries {
		status := Status{
			Name:        entry.name,
			Description: entry.description,
			Optional:    true,
			Available:   entry.configured,
		}
		if !entry.configured {
			status.Detail = "api key not configured"
		}
		results = append(results, status)
	}
	return results
}
