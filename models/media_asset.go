package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetType enumerates the media asset kinds produced during a run.
type AssetType string

const (
	AssetTypeImage       AssetType = "IMAGE"
	AssetTypeAudio       AssetType = "AUDIO"
	AssetTypeVideoClip   AssetType = "VIDEO_CLIP"
	AssetTypeTextOverlay AssetType = "TEXT_OVERLAY"
)

// AssetSource records where an asset came from.
type AssetSource string

const (
	AssetSourceGenerated    AssetSource = "GENERATED"
	AssetSourceStock        AssetSource = "STOCK"
	AssetSourceUserUploaded AssetSource = "USER_UPLOADED"
)

// MediaAsset is one media file owned by exactly one generation job.
// Assets live in the job's working directory until composition promotes
// the final render; they are deleted with the job on failure or cancel.
type MediaAsset struct {
	ID              uuid.UUID      `json:"id"`
	GenerationJobID uuid.UUID      `json:"generation_job_id"`
	AssetType       AssetType      `json:"asset_type"`
	FilePath        string         `json:"file_path"`
	URLPath         *string        `json:"url_path,omitempty"`
	DurationSec     *float64       `json:"duration_sec,omitempty"` // Audio and clips only
	SourceType      AssetSource    `json:"source_type"`
	Metadata        *AssetMetadata `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// AssetMetadata preserves the provider call that produced a generated asset.
type AssetMetadata struct {
	Provider          string `json:"provider"`
	Model             string `json:"model,omitempty"`
	Prompt            string `json:"prompt,omitempty"`
	ProviderRequestID string `json:"provider_request_id,omitempty"`
}
