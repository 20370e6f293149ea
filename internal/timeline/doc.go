// Package timeline defines the domain types that flow between pipeline
// stages: scenes produced by script enhancement, the media assets paired to
// them, caption tracks, and the enumerated caption style profiles.
package timeline
