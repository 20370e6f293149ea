// Package services defines shared utilities consumed by the pipeline stages
// and provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (provider fall-through vs terminal job failure).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, fallback routing) stays uniform across the
// pipeline.
package services
