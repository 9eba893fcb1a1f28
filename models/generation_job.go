package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the lifecycle states of a video generation job.
type JobStatus string

const (
	JobStatusPending          JobStatus = "PENDING"
	JobStatusMediaGeneration  JobStatus = "MEDIA_GENERATION"
	JobStatusVideoComposition JobStatus = "VIDEO_COMPOSITION"
	JobStatusCompleted        JobStatus = "COMPLETED"
	JobStatusFailed           JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ResourceUsage captures the metrics recorded for one pipeline run.
// All values are best effort; a failed job still carries whatever was
// measured up to the failure point.
type ResourceUsage struct {
	GenerationTimeSec float64 `json:"generation_time_sec"`
	PeakMemoryBytes   uint64  `json:"peak_memory_bytes"`
	DiskUsedBytes     int64   `json:"disk_used_bytes"`
	CPUTimeSec        float64 `json:"cpu_time_sec"`
}

// CompositionSettings are the caller-supplied options for a generation run.
// Validation of the enums happens at submission time, before a job row exists.
type CompositionSettings struct {
	Resolution  string `json:"resolution" validate:"required,oneof=1920x1080 1280x720 3840x2160"`
	DurationSec int    `json:"duration_sec" validate:"required,min=30,max=600"`
	Quality     string `json:"quality" validate:"required,oneof=high medium low"`
}

// VideoGenerationJob represents one execution of the script → media →
// composition pipeline. A job is created PENDING and mutated only by the
// executor until it reaches a terminal status; a retry is a fresh job row
// referencing the same script, never a resurrected one.
type VideoGenerationJob struct {
	ID                  uuid.UUID           `json:"id"`
	SessionID           string              `json:"session_id"`
	ScriptID            uuid.UUID           `json:"script_id"`
	Status              JobStatus           `json:"status"`
	ProgressPercentage  int                 `json:"progress_percentage"`
	StartedAt           time.Time           `json:"started_at"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"` // Set iff status is terminal
	ErrorMessage        *string             `json:"error_message,omitempty"`
	ErrorContext        *FailureContext     `json:"error_context,omitempty"`
	ResourceUsage       *ResourceUsage      `json:"resource_usage,omitempty"`
	CompositionSettings CompositionSettings `json:"composition_settings"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// FailureContext is the structured debugging record attached to a FAILED
// job: enough to reconstruct what was attempted without re-running it.
type FailureContext struct {
	Stage             string    `json:"stage"`
	ErrorKind         string    `json:"error_kind"`
	ProviderName      string    `json:"provider_name,omitempty"`
	ProviderRequestID string    `json:"provider_request_id,omitempty"`
	Attempts          int       `json:"attempts"`
	OccurredAt        time.Time `json:"occurred_at"`
}
