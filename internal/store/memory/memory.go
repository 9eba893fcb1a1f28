// Package memory provides mutex-guarded map implementations of the store
// interfaces. They back the test suite and local development; records are
// copied on the way in and out so callers never share memory with the store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/store"
	"github.com/Asdafers/contenitzer-sub001/models"
)

// Stores is the in-memory implementation of all four store interfaces.
type Stores struct {
	mu      sync.RWMutex
	scripts map[uuid.UUID]models.Script
	jobs    map[uuid.UUID]models.VideoGenerationJob
	assets  map[uuid.UUID][]models.MediaAsset // keyed by owning job id
	videos  map[uuid.UUID]models.GeneratedVideo
}

// New creates empty in-memory stores.
func New() *Stores {
	return &Stores{
		scripts: make(map[uuid.UUID]models.Script),
		jobs:    make(map[uuid.UUID]models.VideoGenerationJob),
		assets:  make(map[uuid.UUID][]models.MediaAsset),
		videos:  make(map[uuid.UUID]models.GeneratedVideo),
	}
}

// Bundle returns the store bundle view of s.
func (s *Stores) Bundle() store.Stores {
	return store.Stores{Scripts: s, Jobs: s, Assets: s, Videos: s}
}

func (s *Stores) CreateScript(_ context.Context, script *models.Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scripts[script.ID]; ok {
		return faults.Conflict("script %s already exists", script.ID)
	}
	s.scripts[script.ID] = cloneScript(script)
	return nil
}

func (s *Stores) GetScript(_ context.Context, id uuid.UUID) (*models.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	script, ok := s.scripts[id]
	if !ok {
		return nil, faults.NotFound("script %s not found", id)
	}
	out := cloneScript(&script)
	return &out, nil
}

func (s *Stores) CreateJob(_ context.Context, job *models.VideoGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return faults.Conflict("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Stores) GetJob(_ context.Context, id uuid.UUID) (*models.VideoGenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, faults.NotFound("job %s not found", id)
	}
	out := cloneJob(&job)
	return &out, nil
}

func (s *Stores) UpdateJob(_ context.Context, job *models.VideoGenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return faults.NotFound("job %s not found", job.ID)
	}
	if current.Status.Terminal() {
		return faults.Conflict("job %s is already terminal (%s)", job.ID, current.Status)
	}
	updated := cloneJob(job)
	updated.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = updated
	return nil
}

func (s *Stores) CreateAsset(_ context.Context, asset *models.MediaAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.GenerationJobID] = append(s.assets[asset.GenerationJobID], *asset)
	return nil
}

func (s *Stores) ListAssetsForJob(_ context.Context, jobID uuid.UUID) ([]models.MediaAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MediaAsset, len(s.assets[jobID]))
	copy(out, s.assets[jobID])
	return out, nil
}

func (s *Stores) DeleteAssetsForJob(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assets, jobID)
	return nil
}

func (s *Stores) CreateVideo(_ context.Context, video *models.GeneratedVideo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; ok {
		return faults.Conflict("video %s already exists", video.ID)
	}
	s.videos[video.ID] = *video
	return nil
}

func (s *Stores) GetVideo(_ context.Context, id uuid.UUID) (*models.GeneratedVideo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.videos[id]
	if !ok {
		return nil, faults.NotFound("video %s not found", id)
	}
	out := video
	return &out, nil
}

func (s *Stores) UpdateVideo(_ context.Context, video *models.GeneratedVideo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return faults.NotFound("video %s not found", video.ID)
	}
	updated := *video
	updated.UpdatedAt = time.Now().UTC()
	s.videos[video.ID] = updated
	return nil
}

func cloneScript(in *models.Script) models.Script {
	out := *in
	out.Scenes = make([]models.Scene, len(in.Scenes))
	copy(out.Scenes, in.Scenes)
	return out
}

func cloneJob(in *models.VideoGenerationJob) models.VideoGenerationJob {
	out := *in
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		out.CompletedAt = &t
	}
	if in.ErrorMessage != nil {
		m := *in.ErrorMessage
		out.ErrorMessage = &m
	}
	if in.ErrorContext != nil {
		c := *in.ErrorContext
		out.ErrorContext = &c
	}
	if in.ResourceUsage != nil {
		u := *in.ResourceUsage
		out.ResourceUsage = &u
	}
	return out
}
