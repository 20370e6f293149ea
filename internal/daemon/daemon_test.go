package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/jobstore"
	"reelsmith/internal/testsupport"
)

type stubRunner struct {
	running atomic.Bool
	starts  atomic.Int32
}

func (r *stubRunner) Start(context.Context) error {
	r.starts.Add(1)
	r.running.Store(true)
	return nil
}

func (r *stubRunner) Stop() { r.running.Store(false) }

func (r *stubRunner) Running() bool { return r.running.Load() }

type harness struct {
	cfg    *config.Config
	store  *jobstore.Store
	daemon *daemon.Daemon
	client *api.Client
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, &stubRunner{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	client, err := api.NewClient(d.APIAddr(), cfg.Paths.APIToken)
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}
	return &harness{cfg: cfg, store: store, daemon: d, client: client}
}

func TestSubmitStatusRoundTrip(t *testing.T) {
	h := startDaemon(t)
	ctx := context.Background()

	submitted, err := h.client.Submit(ctx, api.SubmitRequest{
		Script:  "A short film about tides.",
		Options: api.JobOptions{Captions: true, CaptionStyle: "modern", Music: true, Mood: "calm"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submitted.JobID == "" || submitted.Status != "pending" {
		t.Fatalf("submit response = %+v", submitted)
	}

	job, err := h.client.Job(ctx, submitted.JobID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if job.ID != submitted.JobID || job.Status != "pending" {
		t.Fatalf("job = %+v", job)
	}
	if !job.Options.Captions || job.Options.Mood != "calm" {
		t.Fatalf("options = %+v", job.Options)
	}

	jobs, err := h.client.Jobs(ctx, 10)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("job count = %d", len(jobs))
	}
}

func TestSubmitRejectsEmptyScript(t *testing.T) {
	h := startDaemon(t)

	_, err := h.client.Submit(context.Background(), api.SubmitRequest{Script: "   "})
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitWithRecordingStoresUpload(t *testing.T) {
	h := startDaemon(t)
	ctx := context.Background()

	recording := filepath.Join(t.TempDir(), "take.mp3")
	if err := os.WriteFile(recording, []byte("narration-take"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}

	submitted, err := h.client.SubmitWithRecording(ctx, api.SubmitRequest{
		Script:  "Recorded narration script.",
		Options: api.JobOptions{Voice: "nova"},
	}, recording)
	if err != nil {
		t.Fatalf("SubmitWithRecording: %v", err)
	}

	job, err := h.store.Get(ctx, submitted.JobID)
	if err != nil || job == nil {
		t.Fatalf("Get: %v, job %v", err, job)
	}
	opts, err := job.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.RecordingPath == "" {
		t.Fatal("expected stored recording path")
	}
	data, err := os.ReadFile(opts.RecordingPath)
	if err != nil || string(data) != "narration-take" {
		t.Fatalf("stored recording = %q (err %v)", data, err)
	}
}

func TestResultEndpointStates(t *testing.T) {
	h := startDaemon(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, h.store, "A script.", jobstore.Options{})

	_, err := h.client.FetchResult(ctx, job.ID, t.TempDir())
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusConflict {
		t.Fatalf("pending result err = %v", err)
	}

	outputPath := filepath.Join(h.cfg.Paths.OutputDir, job.ID+"_video.mp4")
	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	if err := os.WriteFile(outputPath, []byte("final-video"), 0o644); err != nil {
		t.Fatalf("write output: %v", err)
	}
	job.SetCompleted(outputPath)
	if err := h.store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	downloaded, err := h.client.FetchResult(ctx, job.ID, t.TempDir())
	if err != nil {
		t.Fatalf("FetchResult: %v", err)
	}
	data, err := os.ReadFile(downloaded)
	if err != nil || string(data) != "final-video" {
		t.Fatalf("downloaded = %q (err %v)", data, err)
	}

	if err := os.Remove(outputPath); err != nil {
		t.Fatalf("remove output: %v", err)
	}
	_, err = h.client.FetchResult(ctx, job.ID, t.TempDir())
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("missing output err = %v", err)
	}
}

func TestCancelEndpoint(t *testing.T) {
	h := startDaemon(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, h.store, "A script.", jobstore.Options{})
	resp, err := h.client.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !resp.Cancelled {
		t.Fatalf("cancel response = %+v", resp)
	}
	stored, _ := h.store.Get(ctx, job.ID)
	if stored.Status != jobstore.StatusCancelled {
		t.Fatalf("status = %s", stored.Status)
	}

	// Second cancel reports false without error.
	resp, err = h.client.Cancel(ctx, job.ID)
	if err != nil || resp.Cancelled {
		t.Fatalf("repeat cancel = %+v (err %v)", resp, err)
	}

	_, err = h.client.Cancel(ctx, "no-such-job")
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown job err = %v", err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := startDaemon(t)
	ctx := context.Background()

	testsupport.NewJob(t, h.store, "A script.", jobstore.Options{})

	status, err := h.client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Jobs.Total != 1 || status.Jobs.Pending != 1 {
		t.Fatalf("job counts = %+v", status.Jobs)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestBearerAuthEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "topsecret"
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, &stubRunner{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	unauthorized, err := api.NewClient(d.APIAddr(), "wrong-token")
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}
	_, err = unauthorized.Jobs(context.Background(), 0)
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v", err)
	}

	authorized, err := api.NewClient(d.APIAddr(), "topsecret")
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}
	if _, err := authorized.Jobs(context.Background(), 0); err != nil {
		t.Fatalf("authorized list: %v", err)
	}
}

func TestSecondInstanceBlocked(t *testing.T) {
	h := startDaemon(t)

	second, err := daemon.New(h.cfg, h.store, &stubRunner{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}
