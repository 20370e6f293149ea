package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/timeline"
)

type stubFFmpeg struct {
	duration     float64
	probeErr     error
	normalizeErr error
	silenceCalls int
	silenceSecs  float64
}

func (s *stubFFmpeg) ProbeDuration(context.Context, string) (float64, error) {
	return s.duration, s.probeErr
}

func (s *stubFFmpeg) GenerateSilence(_ context.Context, seconds float64, dest string) error {
	s.silenceCalls++
	s.silenceSecs = seconds
	return os.WriteFile(dest, []byte("silence"), 0o644)
}

func (s *stubFFmpeg) Normalize(_ context.Context, src, dest string) error {
	if s.normalizeErr != nil {
		return s.normalizeErr
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

type stubTTS struct {
	err   error
	calls int
	voice string
}

func (s *stubTTS) Synthesize(_ context.Context, text, voice, destPath string) error {
	s.calls++
	s.voice = voice
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(destPath, []byte("speech"), 0o644)
}

func scenesOf(n int) []timeline.Scene {
	scenes := make([]timeline.Scene, n)
	for i := range scenes {
		scenes[i] = timeline.Scene{Text: "x.", Duration: 5}
	}
	return scenes
}

func TestProduceUsesTTS(t *testing.T) {
	ffmpeg := &stubFFmpeg{duration: 10}
	tts := &stubTTS{}
	stage := New(tts, ffmpeg, t.TempDir(), nil)

	result, err := stage.Produce(context.Background(), "job-1", "Hello.", "nova", "", scenesOf(2), 10)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.Provider != "tts" || tts.voice != "nova" {
		t.Fatalf("result = %+v, voice = %q", result, tts.voice)
	}
	if result.Duration != 10 {
		t.Fatalf("duration = %f", result.Duration)
	}
	if data, err := os.ReadFile(result.Path); err != nil || string(data) != "speech" {
		t.Fatalf("narration = %q, %v", data, err)
	}
}

func TestProduceFallsBackToSilence(t *testing.T) {
	ffmpeg := &stubFFmpeg{duration: 15}
	tts := &stubTTS{err: errors.New("quota exhausted")}
	stage := New(tts, ffmpeg, t.TempDir(), nil)

	result, err := stage.Produce(context.Background(), "job-2", "Hello.", "", "", scenesOf(3), 15)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.Provider != "silence" {
		t.Fatalf("provider = %q", result.Provider)
	}
	if ffmpeg.silenceCalls != 1 || ffmpeg.silenceSecs != 15 {
		t.Fatalf("silence calls = %d secs = %f", ffmpeg.silenceCalls, ffmpeg.silenceSecs)
	}
}

func TestProducePrefersUploadedRecording(t *testing.T) {
	recording := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(recording, []byte("recorded"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	ffmpeg := &stubFFmpeg{duration: 8}
	tts := &stubTTS{}
	stage := New(tts, ffmpeg, t.TempDir(), nil)

	result, err := stage.Produce(context.Background(), "job-3", "Hello.", "", recording, scenesOf(2), 8)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.Provider != "recording" {
		t.Fatalf("provider = %q", result.Provider)
	}
	if tts.calls != 0 {
		t.Fatal("tts should not run when a recording is supplied")
	}
	if data, _ := os.ReadFile(result.Path); string(data) != "recorded" {
		t.Fatalf("narration = %q", data)
	}
}

func TestProduceMissingRecordingIsValidationError(t *testing.T) {
	stage := New(nil, &stubFFmpeg{duration: 8}, t.TempDir(), nil)
	_, err := stage.Produce(context.Background(), "job-4", "Hello.", "", "/does/not/exist.wav", scenesOf(1), 8)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestProduceNormalizeFailureFailsStage(t *testing.T) {
	ffmpeg := &stubFFmpeg{normalizeErr: errors.New("codec error")}
	stage := New(&stubTTS{}, ffmpeg, t.TempDir(), nil)
	if _, err := stage.Produce(context.Background(), "job-5", "Hello.", "", "", scenesOf(1), 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestResyncDividesEvenly(t *testing.T) {
	scenes := Resync(scenesOf(3), 10)
	if len(scenes) != 3 {
		t.Fatalf("scenes = %d", len(scenes))
	}
	var sum float64
	for i, scene := range scenes {
		if scene.AudioEnd <= scene.AudioStart {
			t.Fatalf("scene %d window inverted: %+v", i, scene)
		}
		sum += scene.Duration
	}
	if math.Abs(sum-10) > 0.001 {
		t.Fatalf("durations sum to %f, want 10", sum)
	}
	if scenes[2].AudioEnd != 10 {
		t.Fatalf("last scene ends at %f", scenes[2].AudioEnd)
	}
}

func TestResyncRemainderGoesToLastScene(t *testing.T) {
	scenes := Resync(scenesOf(3), 10.0000001)
	if scenes[2].AudioEnd != 10.0000001 {
		t.Fatalf("last end = %v", scenes[2].AudioEnd)
	}
	if scenes[0].AudioStart != 0 {
		t.Fatalf("first start = %v", scenes[0].AudioStart)
	}
}
