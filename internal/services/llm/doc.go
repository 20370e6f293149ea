// Package llm wraps an OpenRouter-compatible chat completions API.
//
// One client serves every AI-backed feature: script enhancement, search query
// planning, media verification (vision payloads), and quality review. All
// requests demand JSON responses; DecodeLLMJSON tolerates the code fences and
// prose wrappers models sometimes emit. Transient HTTP failures are retried
// with exponential backoff honoring Retry-After.
package llm
