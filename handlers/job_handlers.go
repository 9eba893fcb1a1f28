package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/utils"
)

// GetJobStatus retrieves the state of a generation job. Provider failures
// never surface as HTTP errors here: a FAILED job is a 200 whose body
// carries the failure context.
// GET /api/v1/videos/jobs/:jobId/status
func (h *ApplicationHandler) GetJobStatus(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid job ID format")
	}

	job, err := h.Stores.Jobs.GetJob(c.Context(), jobID)
	if err != nil {
		return utils.RespondWithFault(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, job)
}

// CancelJob requests cooperative cancellation. Terminal jobs yield 409;
// anything else is acknowledged with 200 and settles FAILED at the next
// stage boundary.
// POST /api/v1/videos/jobs/:jobId/cancel
func (h *ApplicationHandler) CancelJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid job ID format")
	}

	if err := h.Executor.Cancel(c.Context(), jobID); err != nil {
		return utils.RespondWithFault(c, err)
	}

	h.Logger.WithField("job_id", jobID).Info("Job cancellation accepted")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"job_id": jobID, "cancelling": true})
}
