// Package supastore persists job pipeline records in Supabase (PostgREST).
// It is the production implementation of the store interfaces; row shapes
// mirror the models one to one, with jsonb columns for the structured
// fields.
package supastore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/store"
	"github.com/Asdafers/contenitzer-sub001/models"
)

const (
	scriptsTable = "scripts"
	jobsTable    = "video_generation_jobs"
	assetsTable  = "media_assets"
	videosTable  = "generated_videos"
)

// Stores implements the store interfaces on a Supabase client.
type Stores struct {
	client *supa.Client
}

// New wraps an initialized Supabase client.
func New(client *supa.Client) *Stores {
	return &Stores{client: client}
}

// Bundle returns the store bundle view of s.
func (s *Stores) Bundle() store.Stores {
	return store.Stores{Scripts: s, Jobs: s, Assets: s, Videos: s}
}

func (s *Stores) CreateScript(_ context.Context, script *models.Script) error {
	return s.insert(scriptsTable, script)
}

func (s *Stores) GetScript(_ context.Context, id uuid.UUID) (*models.Script, error) {
	var scripts []models.Script
	if err := s.selectByID(scriptsTable, "id", id, &scripts); err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, faults.NotFound("script %s not found", id)
	}
	return &scripts[0], nil
}

func (s *Stores) CreateJob(_ context.Context, job *models.VideoGenerationJob) error {
	return s.insert(jobsTable, job)
}

func (s *Stores) GetJob(_ context.Context, id uuid.UUID) (*models.VideoGenerationJob, error) {
	var jobs []models.VideoGenerationJob
	if err := s.selectByID(jobsTable, "id", id, &jobs); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, faults.NotFound("job %s not found", id)
	}
	return &jobs[0], nil
}

func (s *Stores) UpdateJob(ctx context.Context, job *models.VideoGenerationJob) error {
	// Terminal rows are immutable. The read-then-write is not transactional,
	// but each job has a single writer (the worker running its stage), so the
	// check only has to guard against cancel racing the final stage update.
	current, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return faults.Conflict("job %s is already terminal (%s)", job.ID, current.Status)
	}

	job.UpdatedAt = time.Now().UTC()
	updateData, err := toMap(job)
	if err != nil {
		return err
	}
	_, _, err = s.client.From(jobsTable).
		Update(updateData, "", "").
		Eq("id", job.ID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Stores) CreateAsset(_ context.Context, asset *models.MediaAsset) error {
	return s.insert(assetsTable, asset)
}

func (s *Stores) ListAssetsForJob(_ context.Context, jobID uuid.UUID) ([]models.MediaAsset, error) {
	// Creation order is scene order, which composition depends on.
	var assets []models.MediaAsset
	bodyBytes, _, err := s.client.From(assetsTable).
		Select("*", "", false).
		Eq("generation_job_id", jobID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for job %s: %w", jobID, err)
	}
	if err := json.Unmarshal(bodyBytes, &assets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assets for job %s: %w", jobID, err)
	}
	return assets, nil
}

func (s *Stores) DeleteAssetsForJob(_ context.Context, jobID uuid.UUID) error {
	_, _, err := s.client.From(assetsTable).
		Delete("", "").
		Eq("generation_job_id", jobID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete assets for job %s: %w", jobID, err)
	}
	return nil
}

func (s *Stores) CreateVideo(_ context.Context, video *models.GeneratedVideo) error {
	return s.insert(videosTable, video)
}

func (s *Stores) GetVideo(_ context.Context, id uuid.UUID) (*models.GeneratedVideo, error) {
	var videos []models.GeneratedVideo
	if err := s.selectByID(videosTable, "id", id, &videos); err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, faults.NotFound("video %s not found", id)
	}
	return &videos[0], nil
}

func (s *Stores) UpdateVideo(_ context.Context, video *models.GeneratedVideo) error {
	video.UpdatedAt = time.Now().UTC()
	updateData, err := toMap(video)
	if err != nil {
		return err
	}
	_, _, err = s.client.From(videosTable).
		Update(updateData, "", "").
		Eq("id", video.ID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", video.ID, err)
	}
	return nil
}

func (s *Stores) insert(table string, record interface{}) error {
	_, _, err := s.client.From(table).
		Insert(record, false, "", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (s *Stores) selectByID(table, column string, id uuid.UUID, dest interface{}) error {
	bodyBytes, _, err := s.client.From(table).
		Select("*", "", false).
		Eq(column, id.String()).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", table, err)
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s row: %w", table, err)
	}
	return nil
}

// toMap round-trips a record through JSON so updates only carry the columns
// the model actually serializes.
func toMap(record interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to build update map: %w", err)
	}
	return out, nil
}
