package music

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/services/ffmpeg"
)

type stubConditioner struct {
	err   error
	src   string
	dest  string
	opts  ffmpeg.MusicOptions
	calls int
}

func (s *stubConditioner) ConditionMusic(_ context.Context, src, dest string, opts ffmpeg.MusicOptions) error {
	s.calls++
	s.src = src
	s.dest = dest
	s.opts = opts
	return s.err
}

func writeTracks(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("audio"), 0o644); err != nil {
			t.Fatalf("write track: %v", err)
		}
	}
}

func newStage(t *testing.T, conditioner Conditioner, musicDir string) *Stage {
	t.Helper()
	stage := New(conditioner, Config{
		MusicDir:       musicDir,
		VolumeDB:       -12,
		FadeInSeconds:  2,
		FadeOutSeconds: 3,
	}, nil)
	stage.WithRandIndex(func(string, int) int { return 0 })
	return stage
}

func TestProducePicksGenreMatchForMood(t *testing.T) {
	musicDir := t.TempDir()
	writeTracks(t, musicDir, "rock_anthem.mp3", "corporate_calm.mp3", "notes.txt")

	conditioner := &stubConditioner{}
	stage := newStage(t, conditioner, musicDir)

	result, err := stage.Produce(context.Background(), "job-1", "professional", 30, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.Skipped {
		t.Fatal("stage skipped unexpectedly")
	}
	if filepath.Base(conditioner.src) != "corporate_calm.mp3" {
		t.Fatalf("picked %q", conditioner.src)
	}
	if conditioner.opts.Duration != 30 || conditioner.opts.VolumeDB != -12 {
		t.Fatalf("opts = %+v", conditioner.opts)
	}
	if conditioner.opts.FadeInSeconds != 2 || conditioner.opts.FadeOutSeconds != 3 {
		t.Fatalf("opts = %+v", conditioner.opts)
	}
}

func TestProduceFallsBackToAnyTrack(t *testing.T) {
	musicDir := t.TempDir()
	writeTracks(t, musicDir, "random_loop.wav")

	conditioner := &stubConditioner{}
	stage := newStage(t, conditioner, musicDir)

	result, err := stage.Produce(context.Background(), "job-2", "unknown-mood", 20, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.Skipped || filepath.Base(result.Source) != "random_loop.wav" {
		t.Fatalf("result = %+v", result)
	}
}

func TestProduceSkipsOnEmptyLibrary(t *testing.T) {
	conditioner := &stubConditioner{}
	stage := newStage(t, conditioner, t.TempDir())

	result, err := stage.Produce(context.Background(), "job-3", "calm", 20, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("result = %+v", result)
	}
	if conditioner.calls != 0 {
		t.Fatal("conditioner should not run without a track")
	}
}

func TestProduceSkipsOnMissingLibraryDir(t *testing.T) {
	stage := newStage(t, &stubConditioner{}, filepath.Join(t.TempDir(), "missing"))
	result, err := stage.Produce(context.Background(), "job-4", "calm", 20, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("result = %+v", result)
	}
}

func TestProducePickIsDeterministicPerJob(t *testing.T) {
	musicDir := t.TempDir()
	writeTracks(t, musicDir,
		"calm_one.mp3", "calm_two.mp3", "ambient_three.mp3", "chill_four.mp3")

	conditioner := &stubConditioner{}
	stage := New(conditioner, Config{MusicDir: musicDir}, nil)

	first, err := stage.Produce(context.Background(), "job-7", "calm", 20, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	second, err := stage.Produce(context.Background(), "job-7", "calm", 20, t.TempDir())
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if first.Source != second.Source {
		t.Fatalf("same job picked %q then %q", first.Source, second.Source)
	}
}

func TestProduceConditioningFailureFailsStage(t *testing.T) {
	musicDir := t.TempDir()
	writeTracks(t, musicDir, "ambient_loop.mp3")

	conditioner := &stubConditioner{err: errors.New("ffmpeg exploded")}
	stage := newStage(t, conditioner, musicDir)

	if _, err := stage.Produce(context.Background(), "job-5", "calm", 20, t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}

func TestProduceRejectsNonPositiveDuration(t *testing.T) {
	stage := newStage(t, &stubConditioner{}, t.TempDir())
	if _, err := stage.Produce(context.Background(), "job-6", "calm", 0, t.TempDir()); err == nil {
		t.Fatal("expected validation error")
	}
}
