package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/models"
)

func newJob() *models.VideoGenerationJob {
	now := time.Now().UTC()
	return &models.VideoGenerationJob{
		ID:        uuid.New(),
		SessionID: "s",
		ScriptID:  uuid.New(),
		Status:    models.JobStatusPending,
		StartedAt: now,
		CompositionSettings: models.CompositionSettings{
			Resolution: "1920x1080", DurationSec: 60, Quality: "high",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestJobRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob()

	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)

	_, err = s.GetJob(ctx, uuid.New())
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))

	assert.Equal(t, faults.KindConflict, faults.KindOf(s.CreateJob(ctx, job)))
}

func TestUpdateJobRejectsTerminalRewrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	job.Status = models.JobStatusCompleted
	job.ProgressPercentage = 100
	now := time.Now().UTC()
	job.CompletedAt = &now
	require.NoError(t, s.UpdateJob(ctx, job))

	// Terminal rows are immutable, whatever the caller tries to write.
	job.Status = models.JobStatusMediaGeneration
	err := s.UpdateJob(ctx, job)
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestGetJobReturnsIsolatedCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	job := newJob()
	require.NoError(t, s.CreateJob(ctx, job))

	first, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	first.Status = models.JobStatusFailed
	message := "mutated by caller"
	first.ErrorMessage = &message

	second, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, second.Status)
	assert.Nil(t, second.ErrorMessage)
}

func TestScriptCloneIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	script := &models.Script{
		ID:     uuid.New(),
		Title:  "T",
		Scenes: []models.Scene{{Narration: "n", ImagePrompt: "p"}},
	}
	require.NoError(t, s.CreateScript(ctx, script))

	// Mutating the caller's slice must not leak into the store.
	script.Scenes[0].Narration = "changed"

	got, err := s.GetScript(ctx, script.ID)
	require.NoError(t, err)
	assert.Equal(t, "n", got.Scenes[0].Narration)
}

func TestAssetLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	jobID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateAsset(ctx, &models.MediaAsset{
			ID:              uuid.New(),
			GenerationJobID: jobID,
			AssetType:       models.AssetTypeImage,
			FilePath:        "x.png",
		}))
	}

	assets, err := s.ListAssetsForJob(ctx, jobID)
	require.NoError(t, err)
	assert.Len(t, assets, 3)

	require.NoError(t, s.DeleteAssetsForJob(ctx, jobID))
	assets, err = s.ListAssetsForJob(ctx, jobID)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestVideoRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()
	video := &models.GeneratedVideo{
		ID:              id,
		GenerationJobID: id,
		FilePath:        "/media/" + id.String() + ".mp4",
		UploadStatus:    models.UploadStatusPending,
	}
	require.NoError(t, s.CreateVideo(ctx, video))

	video.UploadStatus = models.UploadStatusCompleted
	require.NoError(t, s.UpdateVideo(ctx, video))

	got, err := s.GetVideo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.UploadStatusCompleted, got.UploadStatus)

	_, err = s.GetVideo(ctx, uuid.New())
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))

	err = s.UpdateVideo(ctx, &models.GeneratedVideo{ID: uuid.New()})
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))
}
