// Package pipeline drives jobs through the production stages and manages
// background processing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"reelsmith/internal/audio"
	"reelsmith/internal/captions"
	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/enhance"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/logging"
	"reelsmith/internal/music"
	"reelsmith/internal/notifications"
	"reelsmith/internal/review"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

// Progress ceilings per stage. Updates clamp to the ceiling and never move
// backwards.
const (
	ceilingEnhance   = 20
	ceilingPairing   = 38
	ceilingAudio     = 54
	ceilingCaptions  = 65
	ceilingMusic     = 72
	ceilingComposite = 95
	ceilingReview    = 99
)

// Enhancer produces the scene plan.
type Enhancer interface {
	Enhance(ctx context.Context, script string) (enhance.Result, error)
}

// Pairer matches scenes with media assets.
type Pairer interface {
	Pair(ctx context.Context, jobID string, scenes []timeline.Scene, progress func(done, total int)) ([]timeline.MediaAsset, error)
}

// AudioStage produces the narration track.
type AudioStage interface {
	Produce(ctx context.Context, jobID, script, voice, recordingPath string, scenes []timeline.Scene, estimate float64) (audio.Result, error)
}

// CaptionStage produces the styled caption track.
type CaptionStage interface {
	Produce(ctx context.Context, jobID, audioPath string, scenes []timeline.Scene, audioDuration float64, styleName string) (captions.Result, error)
}

// MusicStage produces the background music bed.
type MusicStage interface {
	Produce(ctx context.Context, jobID, mood string, narrationSeconds float64, destDir string) (music.Result, error)
}

// Reviewer produces the advisory quality review.
type Reviewer interface {
	Review(ctx context.Context, script string, sceneCount int, durationSeconds float64, captionProvider, audioProvider string) review.Result
}

// Deps bundles the stage implementations behind the orchestrator.
type Deps struct {
	Enhancer   Enhancer
	Pairer     Pairer
	Audio      AudioStage
	Captions   CaptionStage
	Music      MusicStage
	Compositor compose.Compositor
	Reviewer   Reviewer
}

// Orchestrator runs one job through the full stage sequence.
type Orchestrator struct {
	cfg      *config.Config
	store    *jobstore.Store
	deps     Deps
	notifier notifications.Service
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg *config.Config, store *jobstore.Store, deps Deps, notifier notifications.Service, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{cfg: cfg, store: store, deps: deps, notifier: notifier, logger: logger}
}

// jobState carries intermediate results between stages.
type jobState struct {
	options       jobstore.Options
	script        string
	mood          string
	scenes        []timeline.Scene
	assets        []timeline.MediaAsset
	narration     audio.Result
	captionResult captions.Result
	musicResult   music.Result
	outputPath    string
}

// Process runs the job to a terminal state. Re-invoking on a terminal job is
// a no-op. A cancellation observed between stages aborts quietly; in-flight
// results are discarded.
func (o *Orchestrator) Process(ctx context.Context, job *jobstore.Job) error {
	if job == nil {
		return errors.New("pipeline: nil job")
	}
	if job.Status.IsTerminal() {
		return nil
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger := o.logger.With(logging.String(logging.FieldComponent, "pipeline"))
	logger = logging.WithContext(ctx, logger)

	options, err := job.Options()
	if err != nil {
		return o.fail(ctx, logger, job, services.Wrap(services.ErrValidation, "pipeline", "options", "job options unreadable", err))
	}
	state := &jobState{options: options, script: job.Script}

	job.Status = jobstore.StatusProcessing
	if err := o.transition(ctx, job, "enhance", 1); err != nil {
		return err
	}
	_ = o.notifier.NotifyJobStarted(ctx, job.ID)
	logger.Info("stage started", logging.String(logging.FieldStage, "enhance"))

	stages := []struct {
		name    string
		ceiling int
		skip    func() bool
		run     func(ctx context.Context, job *jobstore.Job) error
	}{
		{name: "enhance", ceiling: ceilingEnhance, run: func(ctx context.Context, job *jobstore.Job) error { return o.runEnhance(ctx, job, state) }},
		{name: "pairing", ceiling: ceilingPairing, run: func(ctx context.Context, job *jobstore.Job) error { return o.runPairing(ctx, job, state) }},
		{name: "audio", ceiling: ceilingAudio, run: func(ctx context.Context, job *jobstore.Job) error { return o.runAudio(ctx, job, state) }},
		{name: "captions", ceiling: ceilingCaptions, skip: func() bool { return !state.options.Captions }, run: func(ctx context.Context, job *jobstore.Job) error { return o.runCaptions(ctx, job, state) }},
		{name: "music", ceiling: ceilingMusic, skip: func() bool { return !state.options.Music }, run: func(ctx context.Context, job *jobstore.Job) error { return o.runMusic(ctx, job, state) }},
		{name: "composite", ceiling: ceilingComposite, run: func(ctx context.Context, job *jobstore.Job) error { return o.runComposite(ctx, job, state) }},
		{name: "review", ceiling: ceilingReview, run: func(ctx context.Context, job *jobstore.Job) error { return o.runReview(ctx, job, state) }},
	}

	for _, stage := range stages {
		cancelled, err := o.refreshCancelled(ctx, job)
		if err != nil {
			return err
		}
		if cancelled {
			logger.Info("job cancelled, aborting", logging.String(logging.FieldStage, stage.name))
			return nil
		}
		if stage.skip != nil && stage.skip() {
			logger.Debug("stage skipped", logging.String(logging.FieldStage, stage.name))
			o.setProgress(ctx, job, stage.name, stage.ceiling)
			continue
		}

		stageCtx := services.WithStage(ctx, stage.name)
		if err := o.transition(stageCtx, job, stage.name, job.Progress); err != nil {
			return err
		}
		if err := stage.run(stageCtx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return o.fail(ctx, logger, job, err)
		}
		o.setProgress(ctx, job, stage.name, stage.ceiling)
		logger.Info("stage completed",
			logging.String(logging.FieldStage, stage.name),
			logging.Int("progress", job.Progress))
	}

	job.SetCompleted(state.outputPath)
	if err := o.store.Update(ctx, job); err != nil {
		return fmt.Errorf("pipeline: persist completion: %w", err)
	}
	_ = o.notifier.NotifyJobCompleted(ctx, job.ID, state.outputPath)
	logger.Info("job completed", logging.String("output", state.outputPath))
	return nil
}

func (o *Orchestrator) runEnhance(ctx context.Context, job *jobstore.Job, state *jobState) error {
	result, err := o.deps.Enhancer.Enhance(ctx, state.script)
	if err != nil {
		return err
	}
	state.script = result.EnhancedText
	state.scenes = result.Scenes
	state.mood = state.options.Mood
	if state.mood == "" {
		state.mood = result.Mood
	}
	if err := o.persistScenes(ctx, job, state.scenes); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) runPairing(ctx context.Context, job *jobstore.Job, state *jobState) error {
	base := job.Progress
	assets, err := o.deps.Pairer.Pair(ctx, job.ID, state.scenes, func(done, total int) {
		if total <= 0 {
			return
		}
		span := ceilingPairing - base
		o.setProgress(ctx, job, "pairing", base+span*done/total)
	})
	if err != nil {
		return err
	}
	state.assets = assets
	return nil
}

func (o *Orchestrator) runAudio(ctx context.Context, job *jobstore.Job, state *jobState) error {
	estimate := timeline.TotalDuration(state.scenes)
	result, err := o.deps.Audio.Produce(ctx, job.ID, state.script, state.options.Voice, state.options.RecordingPath, state.scenes, estimate)
	if err != nil {
		return err
	}
	state.narration = result
	state.scenes = result.Scenes
	return o.persistScenes(ctx, job, state.scenes)
}

func (o *Orchestrator) runCaptions(ctx context.Context, job *jobstore.Job, state *jobState) error {
	result, err := o.deps.Captions.Produce(ctx, job.ID, state.narration.Path, state.scenes, state.narration.Duration, state.options.CaptionStyle)
	if err != nil {
		return err
	}
	state.captionResult = result
	return nil
}

func (o *Orchestrator) runMusic(ctx context.Context, job *jobstore.Job, state *jobState) error {
	result, err := o.deps.Music.Produce(ctx, job.ID, state.mood, state.narration.Duration, o.cfg.WorkDir())
	if err != nil {
		return err
	}
	state.musicResult = result
	return nil
}

func (o *Orchestrator) runComposite(ctx context.Context, job *jobstore.Job, state *jobState) error {
	spec := compose.RenderSpec{
		JobID:         job.ID,
		Scenes:        state.scenes,
		Assets:        state.assets,
		NarrationPath: state.narration.Path,
		MusicPath:     state.musicResult.Path,
		CaptionPath:   state.captionResult.ASSPath,
		AspectRatio:   state.options.AspectRatio,
		OutputDir:     o.cfg.Paths.OutputDir,
		WorkDir:       filepath.Join(o.cfg.WorkDir(), "render"),
	}
	outputPath, err := o.deps.Compositor.Render(ctx, spec)
	if err != nil {
		return err
	}
	state.outputPath = outputPath
	return nil
}

func (o *Orchestrator) runReview(ctx context.Context, job *jobstore.Job, state *jobState) error {
	if o.deps.Reviewer == nil {
		return nil
	}
	result := o.deps.Reviewer.Review(ctx, state.script, len(state.scenes), state.narration.Duration, state.captionResult.Provider, state.narration.Provider)
	if result.Skipped {
		return nil
	}
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("quality review",
		logging.Float64("score", result.Score),
		logging.Any("suggestions", result.Suggestions))
	return nil
}

// refreshCancelled reloads the job row and reports whether a cancel request
// landed since the last stage.
func (o *Orchestrator) refreshCancelled(ctx context.Context, job *jobstore.Job) (bool, error) {
	current, err := o.store.Get(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("pipeline: reload job: %w", err)
	}
	if current == nil {
		return false, services.Wrap(services.ErrNotFound, "pipeline", "reload", "job row disappeared", nil)
	}
	if current.Status == jobstore.StatusCancelled {
		return true, nil
	}
	return false, nil
}

func (o *Orchestrator) transition(ctx context.Context, job *jobstore.Job, stage string, progress int) error {
	job.SetProgress(stage, progress)
	if err := o.store.Update(ctx, job); err != nil {
		return fmt.Errorf("pipeline: persist stage %s: %w", stage, err)
	}
	return nil
}

func (o *Orchestrator) setProgress(ctx context.Context, job *jobstore.Job, stage string, percent int) {
	job.SetProgress(stage, percent)
	if err := o.store.Update(ctx, job); err != nil {
		o.logger.Warn("progress update failed", logging.Error(err))
	}
}

func (o *Orchestrator) persistScenes(ctx context.Context, job *jobstore.Job, scenes []timeline.Scene) error {
	encoded, err := timeline.EncodeScenes(scenes)
	if err != nil {
		return fmt.Errorf("pipeline: encode scenes: %w", err)
	}
	job.ScenesJSON = encoded
	if err := o.store.Update(ctx, job); err != nil {
		return fmt.Errorf("pipeline: persist scenes: %w", err)
	}
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, job *jobstore.Job, stageErr error) error {
	job.SetFailed(stageErr.Error())
	if err := o.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	_ = o.notifier.NotifyJobFailed(ctx, job.ID, stageErr.Error())
	logger.Error("job failed", logging.Error(stageErr))
	return stageErr
}
