// Package pipeline contains the task executor: submission validation, the
// job state machine, stage sequencing with retry/backoff, cancellation and
// cleanup. It is the only writer of job rows after creation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Asdafers/contenitzer-sub001/config"
	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/progress"
	"github.com/Asdafers/contenitzer-sub001/internal/providers"
	"github.com/Asdafers/contenitzer-sub001/internal/store"
	"github.com/Asdafers/contenitzer-sub001/internal/worker"
	"github.com/Asdafers/contenitzer-sub001/models"
)

// Stage names recorded in failure contexts.
const (
	stageMediaGeneration  = "media_generation"
	stageVideoComposition = "video_composition"
	stagePublish          = "youtube_publish"
)

// VideoPublisher is the YouTube upload collaborator.
type VideoPublisher interface {
	Upload(ctx context.Context, filePath, title, description string, tags []string, privacy string) (videoID, videoURL string, err error)
}

// MediaProber reads duration/resolution back out of a rendered file.
// Implemented by ffmpeg.Probe; faked in tests.
type MediaProber func(ctx context.Context, filePath string) (durationSec float64, err error)

// Executor orchestrates generation jobs. Stages of one job run strictly in
// order inside a single worker goroutine; the job row has exactly one
// writer at a time.
type Executor struct {
	stores     store.Stores
	tracker    *progress.Tracker
	dispatcher *worker.Dispatcher
	images     providers.ImageService
	audio      providers.AudioService
	compositor providers.VideoCompositor
	publisher  VideoPublisher
	probe      MediaProber
	profile    *config.PipelineProfile
	logger     *logrus.Logger
	workRoot   string
	mediaRoot  string

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// Options bundles the executor's collaborators.
type Options struct {
	Stores     store.Stores
	Tracker    *progress.Tracker
	Dispatcher *worker.Dispatcher
	Images     providers.ImageService
	Audio      providers.AudioService
	Compositor providers.VideoCompositor
	Publisher  VideoPublisher
	Probe      MediaProber
	Profile    *config.PipelineProfile
	Logger     *logrus.Logger
	WorkRoot   string
	MediaRoot  string
}

// NewExecutor wires up an executor.
func NewExecutor(opts Options) *Executor {
	if opts.Profile == nil {
		opts.Profile = config.DefaultPipelineProfile()
	}
	return &Executor{
		stores:     opts.Stores,
		tracker:    opts.Tracker,
		dispatcher: opts.Dispatcher,
		images:     opts.Images,
		audio:      opts.Audio,
		compositor: opts.Compositor,
		publisher:  opts.Publisher,
		probe:      opts.Probe,
		profile:    opts.Profile,
		logger:     opts.Logger,
		workRoot:   opts.WorkRoot,
		mediaRoot:  opts.MediaRoot,
	}
}

// SubmitRequest is a validated generation submission.
type SubmitRequest struct {
	ScriptID  uuid.UUID
	SessionID string
	Options   models.CompositionSettings
}

// Submit validates the request, creates a PENDING job and queues the
// pipeline run. It returns as soon as the job row exists; all provider work
// happens on the worker pool. Two identical submissions always produce two
// independent jobs.
func (e *Executor) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	if err := e.validateOptions(req.Options); err != nil {
		return uuid.Nil, err
	}
	if req.SessionID == "" {
		return uuid.Nil, faults.Validation("session_id is required")
	}

	script, err := e.stores.Scripts.GetScript(ctx, req.ScriptID)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	job := &models.VideoGenerationJob{
		ID:                  uuid.New(),
		SessionID:           req.SessionID,
		ScriptID:            script.ID,
		Status:              models.JobStatusPending,
		ProgressPercentage:  0,
		StartedAt:           now,
		CompositionSettings: req.Options,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := e.stores.Jobs.CreateJob(ctx, job); err != nil {
		return uuid.Nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.cancels == nil {
		e.cancels = make(map[uuid.UUID]context.CancelFunc)
	}
	e.cancels[job.ID] = cancel
	e.mu.Unlock()

	e.tracker.Update(job.SessionID, models.StageQueued, 0, map[string]interface{}{
		"job_id":    job.ID.String(),
		"script_id": script.ID.String(),
	})

	task := &generationTask{executor: e, job: job, script: script, jobCtx: jobCtx}
	if err := e.dispatcher.SubmitTask(task); err != nil {
		e.finishCancel(job.ID)
		e.failJob(context.Background(), job, stageMediaGeneration, 0, err)
		return uuid.Nil, fmt.Errorf("failed to queue generation job: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"script_id":  script.ID,
		"session_id": job.SessionID,
	}).Info("Generation job submitted")
	return job.ID, nil
}

// Cancel requests cooperative cancellation of a running job. Terminal jobs
// yield a conflict; anything else is cancelled at its next stage boundary
// and settles as FAILED with a cancellation reason.
func (e *Executor) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := e.stores.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return faults.Conflict("job %s is already %s", jobID, job.Status)
	}

	e.mu.Lock()
	cancel := e.cancels[jobID]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	e.logger.WithField("job_id", jobID).Info("Cancellation requested")
	return nil
}

func (e *Executor) validateOptions(opts models.CompositionSettings) error {
	limits := e.profile.Limits
	if !contains(limits.AllowedResolutions, opts.Resolution) {
		return faults.Validation("resolution %q is not supported (allowed: %v)", opts.Resolution, limits.AllowedResolutions)
	}
	if opts.DurationSec < limits.MinDurationSec || opts.DurationSec > limits.MaxDurationSec {
		return faults.Validation("duration_sec must be between %d and %d, got %d",
			limits.MinDurationSec, limits.MaxDurationSec, opts.DurationSec)
	}
	if !contains(limits.AllowedQualities, opts.Quality) {
		return faults.Validation("quality %q is not supported (allowed: %v)", opts.Quality, limits.AllowedQualities)
	}
	return nil
}

func (e *Executor) finishCancel(jobID uuid.UUID) {
	e.mu.Lock()
	if cancel, ok := e.cancels[jobID]; ok {
		cancel()
		delete(e.cancels, jobID)
	}
	e.mu.Unlock()
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// generationTask runs one job's pipeline on the worker pool.
type generationTask struct {
	executor *Executor
	job      *models.VideoGenerationJob
	script   *models.Script
	jobCtx   context.Context
}

func (t *generationTask) ID() string { return t.job.ID.String() }

func (t *generationTask) Execute(poolCtx context.Context) error {
	// Pool shutdown cancels the job context too, so stage boundaries only
	// need to watch one context.
	stop := context.AfterFunc(poolCtx, func() {
		t.executor.finishCancel(t.job.ID)
	})
	defer stop()
	defer t.executor.finishCancel(t.job.ID)

	return t.executor.runJob(t.jobCtx, t.job, t.script)
}

// runJob executes the stages in pipeline order. Any error marks the job
// FAILED with preserved context; no placeholder output is ever produced.
func (e *Executor) runJob(ctx context.Context, job *models.VideoGenerationJob, script *models.Script) error {
	startedWall := time.Now()
	workDir := filepath.Join(e.workRoot, job.ID.String())

	if err := ctx.Err(); err != nil {
		// Cancelled while still queued.
		e.failJob(ctx, job, stageMediaGeneration, 0, faults.Wrap(faults.KindCanceled, err, "job canceled before start"))
		return nil
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		e.failJob(ctx, job, stageMediaGeneration, 0, fmt.Errorf("failed to create work dir: %w", err))
		return nil
	}

	assets, attempts, err := e.runMediaGeneration(ctx, job, script, workDir)
	if err != nil {
		e.failStage(ctx, job, stageMediaGeneration, attempts, err, workDir, startedWall)
		return nil
	}

	video, attempts, err := e.runComposition(ctx, job, assets, workDir)
	if err != nil {
		e.failStage(ctx, job, stageVideoComposition, attempts, err, workDir, startedWall)
		return nil
	}

	job.Status = models.JobStatusCompleted
	job.ProgressPercentage = 100
	now := time.Now().UTC()
	job.CompletedAt = &now
	job.ResourceUsage = measureUsage(startedWall, workDir, video.SizeBytes)
	if err := e.stores.Jobs.UpdateJob(ctx, job); err != nil {
		e.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to record job completion")
	} else if err := e.stores.Videos.CreateVideo(ctx, video); err != nil {
		// The video row goes in only after the job is terminal: a video must
		// never be servable while its job still reads as running.
		e.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to record generated video")
	}
	os.RemoveAll(workDir)

	e.tracker.Update(job.SessionID, models.StageCompleted, 100, map[string]interface{}{
		"job_id":       job.ID.String(),
		"video_id":     video.ID.String(),
		"duration_sec": video.DurationSec,
	})
	e.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"video_id": video.ID,
		"elapsed":  time.Since(startedWall).String(),
	}).Info("Generation job completed")
	return nil
}

// runMediaGeneration produces one image per scene plus the narration audio
// track. Progress moves from 5 to 70 across the stage.
func (e *Executor) runMediaGeneration(ctx context.Context, job *models.VideoGenerationJob, script *models.Script, workDir string) ([]models.MediaAsset, int, error) {
	if err := e.advance(ctx, job, models.JobStatusMediaGeneration, 5, models.StageAnalyzingScript, map[string]interface{}{
		"job_id": job.ID.String(),
		"scenes": len(script.Scenes),
	}); err != nil {
		return nil, 0, err
	}

	var assets []models.MediaAsset
	sceneCount := len(script.Scenes)
	for i, scene := range script.Scenes {
		destPath := filepath.Join(workDir, fmt.Sprintf("scene_%02d.png", i+1))

		var file *providers.GeneratedFile
		attempts, err := e.callWithRetry(ctx, e.profile.Timeouts.ImageGeneration.Std(), func(callCtx context.Context) error {
			var callErr error
			file, callErr = e.images.GenerateImage(callCtx, scene.ImagePrompt, destPath)
			return callErr
		})
		if err != nil {
			return nil, attempts, err
		}

		asset := models.MediaAsset{
			ID:              uuid.New(),
			GenerationJobID: job.ID,
			AssetType:       models.AssetTypeImage,
			FilePath:        file.Path,
			SourceType:      models.AssetSourceGenerated,
			Metadata: &models.AssetMetadata{
				Provider:          file.Provider,
				Model:             file.Model,
				Prompt:            scene.ImagePrompt,
				ProviderRequestID: file.ProviderRequestID,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := e.stores.Assets.CreateAsset(ctx, &asset); err != nil {
			return nil, attempts, err
		}
		assets = append(assets, asset)

		pct := 10 + (50*(i+1))/sceneCount
		if err := e.advance(ctx, job, models.JobStatusMediaGeneration, pct, models.StageGeneratingImages, map[string]interface{}{
			"job_id":    job.ID.String(),
			"scene":     i + 1,
			"of_scenes": sceneCount,
		}); err != nil {
			return nil, attempts, err
		}
	}

	narration := ""
	for _, scene := range script.Scenes {
		narration += scene.Narration + "\n"
	}
	audioPath := filepath.Join(workDir, "narration.mp3")

	var audioFile *providers.GeneratedFile
	attempts, err := e.callWithRetry(ctx, e.profile.Timeouts.AudioGeneration.Std(), func(callCtx context.Context) error {
		var callErr error
		audioFile, callErr = e.audio.GenerateSpeech(callCtx, narration, audioPath)
		return callErr
	})
	if err != nil {
		return nil, attempts, err
	}

	audioAsset := models.MediaAsset{
		ID:              uuid.New(),
		GenerationJobID: job.ID,
		AssetType:       models.AssetTypeAudio,
		FilePath:        audioFile.Path,
		SourceType:      models.AssetSourceGenerated,
		Metadata: &models.AssetMetadata{
			Provider:          audioFile.Provider,
			Model:             audioFile.Model,
			ProviderRequestID: audioFile.ProviderRequestID,
		},
		CreatedAt: time.Now().UTC(),
	}
	if audioFile.DurationSec > 0 {
		d := audioFile.DurationSec
		audioAsset.DurationSec = &d
	}
	if err := e.stores.Assets.CreateAsset(ctx, &audioAsset); err != nil {
		return nil, attempts, err
	}
	assets = append(assets, audioAsset)

	if err := e.advance(ctx, job, models.JobStatusMediaGeneration, 70, models.StageGeneratingAudio, map[string]interface{}{
		"job_id": job.ID.String(),
	}); err != nil {
		return nil, attempts, err
	}
	return assets, 0, nil
}

// runComposition renders the final video and promotes it from the work dir
// into media storage.
func (e *Executor) runComposition(ctx context.Context, job *models.VideoGenerationJob, assets []models.MediaAsset, workDir string) (*models.GeneratedVideo, int, error) {
	if err := e.advance(ctx, job, models.JobStatusVideoComposition, 75, models.StageComposingVideo, map[string]interface{}{
		"job_id": job.ID.String(),
	}); err != nil {
		return nil, 0, err
	}

	renderPath := filepath.Join(workDir, "output.mp4")
	attempts, err := e.callWithRetry(ctx, e.profile.Timeouts.Composition.Std(), func(callCtx context.Context) error {
		return e.compositor.Compose(callCtx, assets, job.CompositionSettings, renderPath)
	})
	if err != nil {
		return nil, attempts, err
	}

	durationSec := float64(job.CompositionSettings.DurationSec)
	if e.probe != nil {
		if probed, probeErr := e.probe(ctx, renderPath); probeErr == nil && probed > 0 {
			durationSec = probed
		} else if probeErr != nil {
			e.logger.WithError(probeErr).WithField("job_id", job.ID).Warn("Could not probe rendered video, using requested duration")
		}
	}

	finalPath := filepath.Join(e.mediaRoot, job.ID.String()+".mp4")
	if err := os.MkdirAll(e.mediaRoot, 0o755); err != nil {
		return nil, attempts, fmt.Errorf("failed to create media root: %w", err)
	}
	if err := os.Rename(renderPath, finalPath); err != nil {
		return nil, attempts, fmt.Errorf("failed to promote rendered video: %w", err)
	}

	var sizeBytes int64
	if info, statErr := os.Stat(finalPath); statErr == nil {
		sizeBytes = info.Size()
	}

	now := time.Now().UTC()
	video := &models.GeneratedVideo{
		ID:              job.ID,
		GenerationJobID: job.ID,
		FilePath:        finalPath,
		DurationSec:     durationSec,
		Resolution:      job.CompositionSettings.Resolution,
		Format:          "mp4",
		SizeBytes:       sizeBytes,
		UploadStatus:    models.UploadStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.advance(ctx, job, models.JobStatusVideoComposition, 95, models.StageComposingVideo, map[string]interface{}{
		"job_id":   job.ID.String(),
		"rendered": true,
	}); err != nil {
		return nil, attempts, err
	}
	return video, 0, nil
}

// advance moves the job forward in the state machine. Progress is clamped
// monotonic: a checkpoint can never report less than the job already did.
// The stage boundary is also where cooperative cancellation is observed.
func (e *Executor) advance(ctx context.Context, job *models.VideoGenerationJob, status models.JobStatus, pct int, stage string, details map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return faults.Wrap(faults.KindCanceled, err, "job canceled")
	}
	if pct < job.ProgressPercentage {
		pct = job.ProgressPercentage
	}
	job.Status = status
	job.ProgressPercentage = pct
	if err := e.stores.Jobs.UpdateJob(ctx, job); err != nil {
		return err
	}
	e.tracker.Update(job.SessionID, stage, pct, details)
	return nil
}

// callWithRetry runs one provider call under its timeout, retrying only
// transient failures with doubling backoff. It returns the number of
// attempts made alongside the final error.
func (e *Executor) callWithRetry(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (int, error) {
	maxAttempts := e.profile.Retry.MaxAttempts
	delay := e.profile.Retry.InitialDelay.Std()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = fn(callCtx)
		cancel()

		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, faults.Wrap(faults.KindCanceled, ctx.Err(), "job canceled")
		}
		if !faults.Retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt < maxAttempts {
			e.logger.WithError(lastErr).WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      maxAttempts,
				"backoff": delay.String(),
			}).Warn("Transient provider failure, retrying")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return attempt, faults.Wrap(faults.KindCanceled, ctx.Err(), "job canceled during backoff")
			}
			delay *= 2
		}
	}
	return maxAttempts, lastErr
}

// failStage handles the stage-failure path: wrap, persist, clean up.
func (e *Executor) failStage(ctx context.Context, job *models.VideoGenerationJob, stage string, attempts int, cause error, workDir string, startedWall time.Time) {
	if attempts < 1 {
		attempts = 1
	}

	var final error
	switch faults.KindOf(cause) {
	case faults.KindCanceled:
		final = cause
	case faults.KindNotFound, faults.KindConflict:
		// Store-level failure, not a provider error; keep as-is.
		final = cause
	default:
		final = faults.NoFallback(stage, attempts, cause)
	}

	job.ResourceUsage = measureUsage(startedWall, workDir, 0)
	e.failJob(ctx, job, stage, attempts, final)

	// Best-effort cleanup: asset rows cascade with the job, temp files go
	// with the work dir. An operational sweep may also run, but the failure
	// path does not rely on it.
	if err := e.stores.Assets.DeleteAssetsForJob(context.Background(), job.ID); err != nil {
		e.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to delete asset records")
	}
	if err := os.RemoveAll(workDir); err != nil {
		e.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to remove work dir")
	}
	// A render promoted to media storage before the failure has no video row;
	// remove the orphan file too.
	if err := os.Remove(filepath.Join(e.mediaRoot, job.ID.String()+".mp4")); err != nil && !os.IsNotExist(err) {
		e.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to remove orphaned render")
	}
}

// failJob marks the job FAILED with the structured failure context.
func (e *Executor) failJob(ctx context.Context, job *models.VideoGenerationJob, stage string, attempts int, cause error) {
	now := time.Now().UTC()
	message := cause.Error()
	kind := faults.KindOf(cause)
	if _, ok := cause.(*faults.NoFallbackError); ok {
		kind = faults.KindNoFallback
	}

	failureCtx := &models.FailureContext{
		Stage:      stage,
		ErrorKind:  string(kind),
		Attempts:   attempts,
		OccurredAt: now,
	}
	var fe *faults.Error
	if errors.As(cause, &fe) {
		failureCtx.ProviderName = fe.Provider
		failureCtx.ProviderRequestID = fe.ProviderRequestID
	}

	job.Status = models.JobStatusFailed
	job.CompletedAt = &now
	job.ErrorMessage = &message
	job.ErrorContext = failureCtx
	if err := e.stores.Jobs.UpdateJob(ctx, job); err != nil {
		e.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to record job failure")
	}

	e.tracker.Update(job.SessionID, models.StageFailed, job.ProgressPercentage, map[string]interface{}{
		"job_id":     job.ID.String(),
		"stage":      stage,
		"error_kind": string(kind),
		"error":      message,
	})
	e.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"stage":      stage,
		"error_kind": kind,
	}).WithError(cause).Error("Generation job failed")
}
