package jobstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Options captures the per-job generation settings supplied at submission.
type Options struct {
	Voice         string `json:"voice,omitempty"`
	Captions      bool   `json:"captions"`
	CaptionStyle  string `json:"caption_style,omitempty"`
	Music         bool   `json:"music"`
	Mood          string `json:"mood,omitempty"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	RecordingPath string `json:"recording_path,omitempty"`
}

// Job represents a video generation job persisted in SQLite.
type Job struct {
	ID           string
	Status       Status
	Script       string
	OptionsJSON  string
	Stage        string
	Progress     int
	ErrorMessage string
	OutputPath   string
	ScenesJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Options decodes the job's submission settings.
func (j *Job) Options() (Options, error) {
	if strings.TrimSpace(j.OptionsJSON) == "" {
		return Options{}, nil
	}
	var opts Options
	if err := json.Unmarshal([]byte(j.OptionsJSON), &opts); err != nil {
		return Options{}, fmt.Errorf("decode job options: %w", err)
	}
	return opts, nil
}

// SetOptions encodes and stores the submission settings.
func (j *Job) SetOptions(opts Options) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode job options: %w", err)
	}
	j.OptionsJSON = string(data)
	return nil
}

// SetProgress records the current stage label and completion percentage.
// Progress never moves backward while a job is processing.
func (j *Job) SetProgress(stage string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < j.Progress {
		percent = j.Progress
	}
	j.Stage = stage
	j.Progress = percent
}

// SetFailed marks the job failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.Stage = "failed"
}

// SetCompleted marks the job completed with the rendered output path.
func (j *Job) SetCompleted(outputPath string) {
	j.Status = StatusCompleted
	j.OutputPath = outputPath
	j.ErrorMessage = ""
	j.Stage = "completed"
	j.Progress = 100
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}
