package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProvider marks a single provider attempt that failed; fallback chains
	// absorb these and move to the next provider.
	ErrProvider = errors.New("provider error")
	// ErrValidation marks bad caller input that no retry can fix.
	ErrValidation = errors.New("validation error")
	// ErrStageFailure marks a pipeline stage whose fallbacks are all exhausted.
	ErrStageFailure = errors.New("stage failure")
	// ErrResource marks filesystem or disk failures.
	ErrResource = errors.New("resource error")
	// ErrNotFound marks lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStageFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsProvider reports whether err is a single-provider failure that a fallback
// chain should absorb rather than surface.
func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

// IsTerminal reports whether err should fail the job outright instead of
// falling through to the next provider.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrResource) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
