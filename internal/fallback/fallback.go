// Package fallback runs capability providers in priority order.
//
// Every adapter chain in the pipeline shares the same contract: providers are
// tried first to last, a provider failure is logged and absorbed, and the
// chain only fails when every provider has been exhausted. Chains normally
// end in a deterministic local provider that cannot fail, so stage code can
// treat a chain error as exceptional. Validation and resource errors abort
// immediately instead of falling through.
package fallback

import (
	"context"
	"log/slog"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Provider is one candidate implementation of a capability.
type Provider[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Result carries the chain outcome plus the provider that produced it.
type Result[T any] struct {
	Value    T
	Provider string
}

// Run tries each provider in order and returns the first success. The stage
// and op labels only shape log lines and error text.
func Run[T any](ctx context.Context, logger *slog.Logger, stage, op string, providers []Provider[T]) (Result[T], error) {
	var zero Result[T]
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(providers) == 0 {
		return zero, services.Wrap(services.ErrStageFailure, stage, op, "no providers configured", nil)
	}

	var lastErr error
	for _, provider := range providers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := provider.Run(ctx)
		if err == nil {
			return Result[T]{Value: value, Provider: provider.Name}, nil
		}
		if services.IsTerminal(err) {
			return zero, err
		}
		lastErr = err
		logger.Warn("provider failed, trying next",
			logging.String(logging.FieldProvider, provider.Name),
			logging.String("operation", op),
			logging.Error(err))
	}
	return zero, services.Wrap(services.ErrStageFailure, stage, op, "all providers exhausted", lastErr)
}
