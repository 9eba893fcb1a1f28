// Package store defines the persistence interfaces for job, script, asset
// and video records. The executor and the handlers only ever see these
// interfaces: tests and local development run on the in-memory
// implementation, production runs on Supabase rows.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/models"
)

// ScriptStore is the read/write store for scripts. The executor only reads
// from it at submission time.
type ScriptStore interface {
	CreateScript(ctx context.Context, script *models.Script) error
	GetScript(ctx context.Context, id uuid.UUID) (*models.Script, error)
}

// JobStore persists generation job rows. UpdateJob must reject writes to a
// job that is already terminal; that rule is what makes COMPLETED/FAILED
// genuinely final no matter what the caller does.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.VideoGenerationJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.VideoGenerationJob, error)
	UpdateJob(ctx context.Context, job *models.VideoGenerationJob) error
}

// AssetStore persists media assets, each owned by exactly one job.
// DeleteAssetsForJob is the cascade used on failure and cancellation.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.MediaAsset) error
	ListAssetsForJob(ctx context.Context, jobID uuid.UUID) ([]models.MediaAsset, error)
	DeleteAssetsForJob(ctx context.Context, jobID uuid.UUID) error
}

// VideoStore persists the terminal video artifacts.
type VideoStore interface {
	CreateVideo(ctx context.Context, video *models.GeneratedVideo) error
	GetVideo(ctx context.Context, id uuid.UUID) (*models.GeneratedVideo, error)
	UpdateVideo(ctx context.Context, video *models.GeneratedVideo) error
}

// Stores bundles the four stores for wiring convenience.
type Stores struct {
	Scripts ScriptStore
	Jobs    JobStore
	Assets  AssetStore
	Videos  VideoStore
}
