package jobstore_test

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/jobstore"
	"reelsmith/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	opts := jobstore.Options{Voice: "alloy", Captions: true, CaptionStyle: "modern", Mood: "calm"}
	job, err := store.Create(ctx, "A short script about the sea.", opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != jobstore.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.Progress != 0 {
		t.Fatalf("progress = %d, want 0", job.Progress)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job")
	}
	gotOpts, err := fetched.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if gotOpts != opts {
		t.Fatalf("options = %+v, want %+v", gotOpts, opts)
	}
}

func TestCreateRejectsEmptyScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Create(context.Background(), "   ", jobstore.Options{}); err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestUpdatePersistsAndBumpsTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "script", jobstore.Options{})
	before := job.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	job.Status = jobstore.StatusProcessing
	job.SetProgress("enhance", 10)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != jobstore.StatusProcessing {
		t.Fatalf("status = %s", fetched.Status)
	}
	if fetched.Stage != "enhance" || fetched.Progress != 10 {
		t.Fatalf("progress = %s/%d", fetched.Stage, fetched.Progress)
	}
	if !fetched.UpdatedAt.After(before) {
		t.Fatalf("updated_at not bumped: %v <= %v", fetched.UpdatedAt, before)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var last string
	for i := 0; i < 3; i++ {
		job := testsupport.NewJob(t, store, "script", jobstore.Options{})
		last = job.ID
		time.Sleep(5 * time.Millisecond)
	}

	jobs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len = %d, want 2", len(jobs))
	}
	if jobs[0].ID != last {
		t.Fatalf("first listed = %s, want newest %s", jobs[0].ID, last)
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "first", jobstore.Options{})
	time.Sleep(5 * time.Millisecond)
	testsupport.NewJob(t, store, "second", jobstore.Options{})

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want %s", next, first.ID)
	}
}

func TestRequestCancelTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	pending := testsupport.NewJob(t, store, "pending job", jobstore.Options{})
	ok, err := store.RequestCancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel of pending job")
	}
	fetched, _ := store.Get(ctx, pending.ID)
	if fetched.Status != jobstore.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", fetched.Status)
	}

	// Terminal jobs stay untouched.
	ok, err = store.RequestCancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("RequestCancel repeat: %v", err)
	}
	if ok {
		t.Fatal("cancel of terminal job should report false")
	}

	done := testsupport.NewJob(t, store, "done job", jobstore.Options{})
	done.SetCompleted("/tmp/out.mp4")
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ok, err = store.RequestCancel(ctx, done.ID)
	if err != nil {
		t.Fatalf("RequestCancel completed: %v", err)
	}
	if ok {
		t.Fatal("completed job must not be cancellable")
	}
}

func TestUpdateCannotOverwriteCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "racing job", jobstore.Options{})
	if _, err := store.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}

	// A stage update racing with the cancel must not revive the row.
	job.Status = jobstore.StatusProcessing
	job.SetProgress("audio", 40)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	fetched, _ := store.Get(ctx, job.ID)
	if fetched.Status != jobstore.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", fetched.Status)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "interrupted", jobstore.Options{})
	job.Status = jobstore.StatusProcessing
	job.SetProgress("audio", 40)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}
	fetched, _ := store.Get(ctx, job.ID)
	if fetched.Status != jobstore.StatusPending {
		t.Fatalf("status = %s, want pending", fetched.Status)
	}
	if fetched.Progress != 0 {
		t.Fatalf("progress = %d, want 0", fetched.Progress)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, "one", jobstore.Options{})
	failed := testsupport.NewJob(t, store, "two", jobstore.Options{})
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobstore.StatusPending] != 1 || stats[jobstore.StatusFailed] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("health = %+v", health)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create(context.Background(), "durable script", jobstore.Options{Music: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if fetched == nil || fetched.Script != "durable script" {
		t.Fatalf("job not durable: %+v", fetched)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	job := &jobstore.Job{Status: jobstore.StatusProcessing}
	job.SetProgress("enhance", 20)
	job.SetProgress("pairing", 10)
	if job.Progress != 20 {
		t.Fatalf("progress regressed to %d", job.Progress)
	}
	if job.Stage != "pairing" {
		t.Fatalf("stage = %s, want pairing", job.Stage)
	}
	job.SetProgress("pairing", 150)
	if job.Progress != 100 {
		t.Fatalf("progress = %d, want clamp at 100", job.Progress)
	}
}
