package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/audio"
	"reelsmith/internal/captions"
	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/enhance"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/music"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/review"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/timeline"
)

type stubEnhancer struct {
	calls  int
	err    error
	onCall func()
}

func (s *stubEnhancer) Enhance(_ context.Context, script string) (enhance.Result, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	if s.err != nil {
		return enhance.Result{}, s.err
	}
	return enhance.Result{
		EnhancedText: script,
		Scenes: []timeline.Scene{
			{Text: "First scene.", Duration: 5},
			{Text: "Second scene.", Duration: 5},
		},
		Mood:     "calm",
		Provider: "heuristic",
	}, nil
}

type stubPairer struct {
	calls int
	err   error
}

func (s *stubPairer) Pair(_ context.Context, _ string, scenes []timeline.Scene, progress func(done, total int)) ([]timeline.MediaAsset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	assets := make([]timeline.MediaAsset, len(scenes))
	for i := range scenes {
		assets[i] = timeline.MediaAsset{Path: "/media/a.jpg", Kind: timeline.KindPhoto}
		if progress != nil {
			progress(i+1, len(scenes))
		}
	}
	return assets, nil
}

type stubAudio struct {
	calls  int
	onCall func()
}

func (s *stubAudio) Produce(_ context.Context, _, _, _, _ string, scenes []timeline.Scene, _ float64) (audio.Result, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	return audio.Result{Path: "/audio/narration.mp3", Duration: 10, Scenes: scenes, Provider: "tts"}, nil
}

type stubCaptions struct {
	calls int
}

func (s *stubCaptions) Produce(_ context.Context, _, _ string, _ []timeline.Scene, _ float64, _ string) (captions.Result, error) {
	s.calls++
	return captions.Result{ASSPath: "/captions/job.ass", Provider: "script"}, nil
}

type stubMusic struct {
	calls int
}

func (s *stubMusic) Produce(_ context.Context, _, _ string, _ float64, _ string) (music.Result, error) {
	s.calls++
	return music.Result{Path: "/music/bed.mp3", Source: "track.mp3"}, nil
}

type stubCompositor struct {
	calls int
	spec  compose.RenderSpec
}

func (s *stubCompositor) Render(_ context.Context, spec compose.RenderSpec) (string, error) {
	s.calls++
	s.spec = spec
	return "/output/" + spec.JobID + "_video.mp4", nil
}

type stubReviewer struct{}

func (stubReviewer) Review(context.Context, string, int, float64, string, string) review.Result {
	return review.Result{Skipped: true}
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    []string
	drained   []int
}

func (n *recordingNotifier) NotifyJobStarted(_ context.Context, jobID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, jobID)
	return nil
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, jobID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, jobID)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, jobID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, jobID)
	return nil
}

func (n *recordingNotifier) NotifyQueueDrained(_ context.Context, processed int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drained = append(n.drained, processed)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type fixture struct {
	cfg        *config.Config
	store      *jobstore.Store
	enhancer   *stubEnhancer
	pairer     *stubPairer
	audio      *stubAudio
	captions   *stubCaptions
	music      *stubMusic
	compositor *stubCompositor
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &fixture{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		enhancer:   &stubEnhancer{},
		pairer:     &stubPairer{},
		audio:      &stubAudio{},
		captions:   &stubCaptions{},
		music:      &stubMusic{},
		compositor: &stubCompositor{},
		notifier:   &recordingNotifier{},
	}
}

func (f *fixture) orchestrator() *pipeline.Orchestrator {
	deps := pipeline.Deps{
		Enhancer:   f.enhancer,
		Pairer:     f.pairer,
		Audio:      f.audio,
		Captions:   f.captions,
		Music:      f.music,
		Compositor: f.compositor,
		Reviewer:   stubReviewer{},
	}
	return pipeline.NewOrchestrator(f.cfg, f.store, deps, f.notifier, nil)
}

func TestProcessCompletesJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{Captions: true, Music: true})

	if err := f.orchestrator().Process(ctx, job); err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored, err := f.store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != jobstore.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", stored.Status, stored.ErrorMessage)
	}
	if stored.Progress != 100 {
		t.Fatalf("progress = %d, want 100", stored.Progress)
	}
	if stored.OutputPath != "/output/"+job.ID+"_video.mp4" {
		t.Fatalf("output path = %q", stored.OutputPath)
	}
	scenes, err := timeline.DecodeScenes(stored.ScenesJSON)
	if err != nil || len(scenes) != 2 {
		t.Fatalf("scenes = %v (err %v)", scenes, err)
	}
	if f.captions.calls != 1 || f.music.calls != 1 || f.compositor.calls != 1 {
		t.Fatalf("stage calls = captions %d, music %d, compositor %d",
			f.captions.calls, f.music.calls, f.compositor.calls)
	}
	if len(f.notifier.started) != 1 || len(f.notifier.completed) != 1 || len(f.notifier.failed) != 0 {
		t.Fatalf("notifications = %+v", f.notifier)
	}
	if f.compositor.spec.CaptionPath != "/captions/job.ass" || f.compositor.spec.MusicPath != "/music/bed.mp3" {
		t.Fatalf("render spec = %+v", f.compositor.spec)
	}
}

func TestProcessSkipsOptionalStages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{Captions: false, Music: false})

	if err := f.orchestrator().Process(ctx, job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.captions.calls != 0 || f.music.calls != 0 {
		t.Fatalf("optional stages called: captions %d, music %d", f.captions.calls, f.music.calls)
	}
	if f.compositor.spec.CaptionPath != "" || f.compositor.spec.MusicPath != "" {
		t.Fatalf("render spec carries skipped artifacts: %+v", f.compositor.spec)
	}

	stored, _ := f.store.Get(ctx, job.ID)
	if stored.Status != jobstore.StatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestProcessFailsOnStageError(t *testing.T) {
	f := newFixture(t)
	f.pairer.err = errors.New("no providers reachable")
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{})

	if err := f.orchestrator().Process(ctx, job); err == nil {
		t.Fatal("expected stage error")
	}

	stored, _ := f.store.Get(ctx, job.ID)
	if stored.Status != jobstore.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("expected error message")
	}
	if f.audio.calls != 0 || f.compositor.calls != 0 {
		t.Fatalf("later stages ran after failure: audio %d, compositor %d", f.audio.calls, f.compositor.calls)
	}
	if len(f.notifier.failed) != 1 {
		t.Fatalf("failed notifications = %d", len(f.notifier.failed))
	}
}

func TestProcessIsNoopForTerminalJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{})
	job.SetCompleted("/output/done.mp4")
	if err := f.store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := f.orchestrator().Process(ctx, job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.enhancer.calls != 0 {
		t.Fatalf("enhancer ran on terminal job: %d calls", f.enhancer.calls)
	}
}

func TestProcessAbortsAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{})

	// Cancel lands while enhance is running; the next stage boundary
	// observes it.
	f.enhancer.onCall = func() {
		if _, err := f.store.RequestCancel(ctx, job.ID); err != nil {
			t.Errorf("RequestCancel: %v", err)
		}
	}

	if err := f.orchestrator().Process(ctx, job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if f.pairer.calls != 0 {
		t.Fatalf("pairing ran after cancellation: %d calls", f.pairer.calls)
	}
	stored, _ := f.store.Get(ctx, job.ID)
	if stored.Status != jobstore.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}
	if len(f.notifier.completed) != 0 && len(f.notifier.failed) != 0 {
		t.Fatalf("cancelled job produced terminal notifications: %+v", f.notifier)
	}
}

func TestProcessProgressReachesPairingCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.store, "A script.", jobstore.Options{})

	f.audio.onCall = func() {
		stored, err := f.store.Get(ctx, job.ID)
		if err != nil {
			t.Errorf("Get: %v", err)
			return
		}
		if stored.Progress != 38 {
			t.Errorf("progress entering audio = %d, want 38", stored.Progress)
		}
	}

	if err := f.orchestrator().Process(ctx, job); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

type channelProcessor struct {
	admitted chan string
	block    chan struct{}
	active   atomic.Int32
	maxSeen  atomic.Int32
	store    *jobstore.Store
}

func (p *channelProcessor) Process(ctx context.Context, job *jobstore.Job) error {
	current := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		max := p.maxSeen.Load()
		if current <= max || p.maxSeen.CompareAndSwap(max, current) {
			break
		}
	}
	if p.block != nil {
		<-p.block
	}
	job.SetCompleted("/output/" + job.ID + ".mp4")
	if err := p.store.Update(ctx, job); err != nil {
		return err
	}
	p.admitted <- job.ID
	return nil
}

func managerConfig(t *testing.T) *config.Config {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.QueuePollInterval = 1
	cfg.Pipeline.MaxConcurrentJobs = 1
	return cfg
}

func waitForJob(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for job admission")
		return ""
	}
}

func TestManagerProcessesPendingJobs(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := &channelProcessor{admitted: make(chan string, 4), store: store}
	manager := pipeline.NewManager(cfg, store, processor, nil, nil)

	job := testsupport.NewJob(t, store, "A script.", jobstore.Options{})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	if got := waitForJob(t, processor.admitted); got != job.ID {
		t.Fatalf("admitted job = %s, want %s", got, job.ID)
	}
}

func TestManagerRequeuesInterruptedJobs(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "A script.", jobstore.Options{})
	job.Status = jobstore.StatusProcessing
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	processor := &channelProcessor{admitted: make(chan string, 4), store: store}
	manager := pipeline.NewManager(cfg, store, processor, nil, nil)
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	if got := waitForJob(t, processor.admitted); got != job.ID {
		t.Fatalf("admitted job = %s, want %s", got, job.ID)
	}
}

func TestManagerHonorsConcurrencyBound(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := &channelProcessor{
		admitted: make(chan string, 4),
		block:    make(chan struct{}),
		store:    store,
	}
	manager := pipeline.NewManager(cfg, store, processor, nil, nil)

	testsupport.NewJob(t, store, "First script.", jobstore.Options{})
	testsupport.NewJob(t, store, "Second script.", jobstore.Options{})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	close(processor.block)
	waitForJob(t, processor.admitted)
	waitForJob(t, processor.admitted)
	manager.Stop()

	if max := processor.maxSeen.Load(); max > 1 {
		t.Fatalf("max concurrent = %d, want 1", max)
	}
}

func TestManagerNotifiesQueueDrained(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := &channelProcessor{admitted: make(chan string, 4), store: store}
	notifier := &recordingNotifier{}
	manager := pipeline.NewManager(cfg, store, processor, notifier, nil)

	testsupport.NewJob(t, store, "First script.", jobstore.Options{})
	testsupport.NewJob(t, store, "Second script.", jobstore.Options{})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()
	waitForJob(t, processor.admitted)
	waitForJob(t, processor.admitted)

	deadline := time.Now().Add(10 * time.Second)
	for {
		notifier.mu.Lock()
		drained := append([]int(nil), notifier.drained...)
		notifier.mu.Unlock()
		if len(drained) > 0 {
			if drained[0] != 2 {
				t.Fatalf("drained count = %d, want 2", drained[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for queue drained notification")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerStartTwiceFails(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := &channelProcessor{admitted: make(chan string, 1), store: store}
	manager := pipeline.NewManager(cfg, store, processor, nil, nil)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestManagerStopWaitsForWorkers(t *testing.T) {
	cfg := managerConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := &channelProcessor{admitted: make(chan string, 1), store: store}
	manager := pipeline.NewManager(cfg, store, processor, nil, nil)

	testsupport.NewJob(t, store, "A script.", jobstore.Options{})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForJob(t, processor.admitted)
	manager.Stop()
	if manager.Running() {
		t.Fatal("manager still running after Stop")
	}
	if got := processor.active.Load(); got != 0 {
		t.Fatalf("active workers after Stop = %d", got)
	}
}
