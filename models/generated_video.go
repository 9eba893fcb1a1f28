package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus tracks the YouTube publish leg of a finished video.
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// GeneratedVideo is the terminal artifact of a COMPLETED job. It shares its
// ID with the job that produced it, so there is a single identifier space:
// clients poll /videos/{id} with the job id they got at submission.
type GeneratedVideo struct {
	ID              uuid.UUID    `json:"id"` // Same value as GenerationJobID
	GenerationJobID uuid.UUID    `json:"generation_job_id"`
	FilePath        string       `json:"file_path"`
	DurationSec     float64      `json:"duration_sec"`
	Resolution      string       `json:"resolution"`
	Format          string       `json:"format"`
	SizeBytes       int64        `json:"size_bytes"`
	UploadStatus    UploadStatus `json:"upload_status"`
	YouTubeID       *string      `json:"youtube_id,omitempty"`
	YouTubeURL      *string      `json:"youtube_url,omitempty"`
	UploadError     *string      `json:"upload_error,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
