// Package music selects a background track from the local music library and
// conditions it to sit under the narration.
package music

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/ffmpeg"
)

const stageName = "music"

// Conditioner is the ffmpeg surface the stage consumes.
type Conditioner interface {
	ConditionMusic(ctx context.Context, src, dest string, opts ffmpeg.MusicOptions) error
}

// Config bounds music selection and mixing.
type Config struct {
	MusicDir       string
	VolumeDB       float64
	FadeInSeconds  float64
	FadeOutSeconds float64
}

// Result is the conditioned music bed. Skipped is set when the library has
// no usable track; the job proceeds without music.
type Result struct {
	Path    string
	Source  string
	Skipped bool
}

// Stage runs music selection for one job.
type Stage struct {
	ffmpeg    Conditioner
	cfg       Config
	logger    *slog.Logger
	randIndex func(jobID string, n int) int
}

// New creates the music stage.
func New(conditioner Conditioner, cfg Config, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		ffmpeg:    conditioner,
		cfg:       cfg,
		logger:    logger,
		randIndex: seededIndex,
	}
}

// WithRandIndex overrides track randomization (for testing).
func (s *Stage) WithRandIndex(pick func(jobID string, n int) int) {
	if pick != nil {
		s.randIndex = pick
	}
}

// seededIndex derives the pick from the job id so re-running a job selects
// the same track while different jobs still spread across the library.
func seededIndex(jobID string, n int) int {
	h := fnv.New64a()
	h.Write([]byte(jobID))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).IntN(n)
}

// moodGenres maps a plan mood to filename keywords worth matching in the
// library. Unknown moods match nothing and fall back to any track.
var moodGenres = map[string][]string{
	"professional": {"corporate", "ambient", "minimal"},
	"cinematic":    {"cinematic", "epic", "orchestral"},
	"dramatic":     {"cinematic", "epic", "tension"},
	"energetic":    {"upbeat", "rock", "electronic"},
	"upbeat":       {"upbeat", "pop", "happy"},
	"happy":        {"happy", "upbeat", "pop"},
	"calm":         {"calm", "ambient", "chill"},
	"relaxed":      {"chill", "ambient", "calm"},
	"inspiring":    {"inspiring", "uplifting", "piano"},
	"serious":      {"minimal", "ambient", "piano"},
}

var trackExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".m4a": {}, ".ogg": {}, ".flac": {},
}

// Produce picks and conditions a track for the job. A missing or empty
// library skips the stage silently.
func (s *Stage) Produce(ctx context.Context, jobID, mood string, narrationSeconds float64, destDir string) (Result, error) {
	if narrationSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, stageName, "produce", "narration duration must be positive", nil)
	}

	track := s.pickTrack(jobID, mood)
	if track == "" {
		s.logger.Info("no music track available, skipping music bed")
		return Result{Skipped: true}, nil
	}

	destPath := filepath.Join(destDir, jobID+"_music"+filepath.Ext(track))
	err := s.ffmpeg.ConditionMusic(ctx, track, destPath, ffmpeg.MusicOptions{
		Duration:       narrationSeconds,
		VolumeDB:       s.cfg.VolumeDB,
		FadeInSeconds:  s.cfg.FadeInSeconds,
		FadeOutSeconds: s.cfg.FadeOutSeconds,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrStageFailure, stageName, "condition", "music conditioning failed", err)
	}
	return Result{Path: destPath, Source: track}, nil
}

// pickTrack selects a library file: a job-seeded pick among genre matches
// for the mood, any track as last resort, empty when the library is
// unusable.
func (s *Stage) pickTrack(jobID, mood string) string {
	tracks := s.listTracks()
	if len(tracks) == 0 {
		return ""
	}

	genres := moodGenres[strings.ToLower(strings.TrimSpace(mood))]
	var matches []string
	for _, track := range tracks {
		name := strings.ToLower(filepath.Base(track))
		for _, genre := range genres {
			if strings.Contains(name, genre) {
				matches = append(matches, track)
				break
			}
		}
	}
	if len(matches) == 0 {
		matches = tracks
	}
	return matches[s.randIndex(jobID, len(matches))]
}

func (s *Stage) listTracks() []string {
	entries, err := os.ReadDir(s.cfg.MusicDir)
	if err != nil {
		return nil
	}
	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := trackExtensions[ext]; !ok {
			continue
		}
		tracks = append(tracks, filepath.Join(s.cfg.MusicDir, entry.Name()))
	}
	return tracks
}
