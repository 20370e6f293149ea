package fallback_test

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/fallback"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

func TestRunReturnsFirstSuccess(t *testing.T) {
	providers := []fallback.Provider[string]{
		{Name: "primary", Run: func(context.Context) (string, error) { return "from-primary", nil }},
		{Name: "secondary", Run: func(context.Context) (string, error) {
			t.Fatal("secondary should not run")
			return "", nil
		}},
	}
	result, err := fallback.Run(context.Background(), logging.NewNop(), "enhance", "complete", providers)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Value != "from-primary" || result.Provider != "primary" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunFallsThroughProviderErrors(t *testing.T) {
	providers := []fallback.Provider[int]{
		{Name: "a", Run: func(context.Context) (int, error) {
			return 0, services.Wrap(services.ErrProvider, "pairing", "fetch", "rate limited", nil)
		}},
		{Name: "b", Run: func(context.Context) (int, error) { return 42, nil }},
	}
	result, err := fallback.Run(context.Background(), nil, "pairing", "fetch", providers)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Value != 42 || result.Provider != "b" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunExhaustedReturnsStageFailure(t *testing.T) {
	boom := errors.New("boom")
	providers := []fallback.Provider[int]{
		{Name: "a", Run: func(context.Context) (int, error) { return 0, boom }},
		{Name: "b", Run: func(context.Context) (int, error) { return 0, boom }},
	}
	_, err := fallback.Run(context.Background(), nil, "tts", "synthesize", providers)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected stage failure marker, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected last provider error preserved, got %v", err)
	}
}

func TestRunStopsOnTerminalError(t *testing.T) {
	validation := services.Wrap(services.ErrValidation, "enhance", "complete", "empty script", nil)
	providers := []fallback.Provider[int]{
		{Name: "a", Run: func(context.Context) (int, error) { return 0, validation }},
		{Name: "b", Run: func(context.Context) (int, error) {
			t.Fatal("must not run after terminal error")
			return 0, nil
		}},
	}
	_, err := fallback.Run(context.Background(), nil, "enhance", "complete", providers)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	providers := []fallback.Provider[int]{
		{Name: "a", Run: func(context.Context) (int, error) {
			t.Fatal("must not run after cancellation")
			return 0, nil
		}},
	}
	if _, err := fallback.Run(ctx, nil, "x", "y", providers); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunEmptyChainErrors(t *testing.T) {
	_, err := fallback.Run[int](context.Background(), nil, "x", "y", nil)
	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected stage failure, got %v", err)
	}
}
