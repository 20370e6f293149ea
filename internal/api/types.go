// Package api defines the daemon HTTP payload types and a client for them.
package api

import "time"

// JobOptions mirrors the generation settings accepted at submission.
type JobOptions struct {
	Voice        string `json:"voice,omitempty"`
	Captions     bool   `json:"captions"`
	CaptionStyle string `json:"caption_style,omitempty"`
	Music        bool   `json:"music"`
	Mood         string `json:"mood,omitempty"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
}

// SubmitRequest is the JSON body for POST /api/jobs.
type SubmitRequest struct {
	Script  string     `json:"script"`
	Options JobOptions `json:"options"`
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Job is the wire representation of a stored job.
type Job struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Stage      string     `json:"stage,omitempty"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	OutputPath string     `json:"output_path,omitempty"`
	SceneCount int        `json:"scene_count,omitempty"`
	Options    JobOptions `json:"options"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// JobListResponse wraps GET /api/jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// CancelResponse reports the outcome of a cancel request.
type CancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

// JobCounts aggregates jobs per lifecycle state.
type JobCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// DependencyStatus reports the availability of one external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus is the GET /api/status payload.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Version      string             `json:"version,omitempty"`
	DatabasePath string             `json:"database_path,omitempty"`
	LockFilePath string             `json:"lock_file_path,omitempty"`
	Jobs         JobCounts          `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// ErrorResponse is the JSON error envelope used for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
