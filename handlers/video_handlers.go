package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/internal/faults"
	"github.com/Asdafers/contenitzer-sub001/internal/pipeline"
	"github.com/Asdafers/contenitzer-sub001/internal/worker"
	"github.com/Asdafers/contenitzer-sub001/models"
	"github.com/Asdafers/contenitzer-sub001/utils"
)

// GenerateVideoRequest is the submission payload. Enum and range checks on
// the options happen in the executor against the pipeline profile; the
// handler only verifies shape.
type GenerateVideoRequest struct {
	ScriptID  string `json:"script_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Options   struct {
		Resolution  string `json:"resolution" validate:"required"`
		DurationSec int    `json:"duration_sec" validate:"required"`
		Quality     string `json:"quality" validate:"required"`
	} `json:"options" validate:"required"`
}

// GenerateVideo submits a generation job. The response is 202: the job id
// comes back immediately and all provider work happens out of band.
// POST /api/v1/videos/generate
func (h *ApplicationHandler) GenerateVideo(c *fiber.Ctx) error {
	payload := new(GenerateVideoRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %s", strings.Join(utils.FormatValidationErrors(err), "; ")))
	}

	scriptID, err := uuid.Parse(payload.ScriptID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid script_id format")
	}

	jobID, err := h.Executor.Submit(c.Context(), pipeline.SubmitRequest{
		ScriptID:  scriptID,
		SessionID: payload.SessionID,
		Options: models.CompositionSettings{
			Resolution:  payload.Options.Resolution,
			DurationSec: payload.Options.DurationSec,
			Quality:     payload.Options.Quality,
		},
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Generation queue is full, try again later")
		}
		return utils.RespondWithFault(c, err)
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"job_id":     jobID,
		"session_id": payload.SessionID,
	})
}

// GetVideo returns the terminal video metadata, or the job body with 202
// while generation is still running. The job id is the canonical
// identifier: the produced video shares it.
// GET /api/v1/videos/:id
func (h *ApplicationHandler) GetVideo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	video, err := h.Stores.Videos.GetVideo(c.Context(), id)
	if err == nil {
		return utils.RespondWithJSON(c, fiber.StatusOK, video)
	}
	if faults.KindOf(err) != faults.KindNotFound {
		return utils.RespondWithFault(c, err)
	}

	// No artifact yet: report the producing job instead.
	job, jobErr := h.Stores.Jobs.GetJob(c.Context(), id)
	if jobErr != nil {
		return utils.RespondWithFault(c, jobErr)
	}
	if job.Status == models.JobStatusFailed {
		// Terminal but artifact-less; the job body carries the failure.
		return utils.RespondWithJSON(c, fiber.StatusOK, job)
	}
	return utils.RespondWithJSON(c, fiber.StatusAccepted, job)
}

// PublishVideoRequest carries YouTube listing metadata.
type PublishVideoRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy" validate:"omitempty,oneof=public unlisted private"`
}

// PublishVideo queues the YouTube upload of a finished video.
// POST /api/v1/videos/:id/publish
func (h *ApplicationHandler) PublishVideo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}

	payload := new(PublishVideoRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %s", strings.Join(utils.FormatValidationErrors(err), "; ")))
	}

	if err := h.Executor.PublishVideo(c.Context(), id, pipeline.PublishRequest{
		Title:       payload.Title,
		Description: payload.Description,
		Tags:        payload.Tags,
		Privacy:     payload.Privacy,
	}); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Upload queue is full, try again later")
		}
		return utils.RespondWithFault(c, err)
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{"video_id": id})
}
