package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Asdafers/contenitzer-sub001/models"
	"github.com/Asdafers/contenitzer-sub001/utils"
)

var validate = validator.New()

// CreateScriptRequest is the payload for creating a script by hand.
type CreateScriptRequest struct {
	Title  string `json:"title" validate:"required"`
	Scenes []struct {
		Narration   string `json:"narration" validate:"required"`
		ImagePrompt string `json:"image_prompt" validate:"required"`
	} `json:"scenes" validate:"required,min=1,dive"`
}

// CreateScript stores a caller-authored script.
// POST /api/v1/scripts
func (h *ApplicationHandler) CreateScript(c *fiber.Ctx) error {
	payload := new(CreateScriptRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %s", strings.Join(utils.FormatValidationErrors(err), "; ")))
	}

	script := &models.Script{
		ID:        uuid.New(),
		Title:     payload.Title,
		CreatedAt: time.Now().UTC(),
	}
	for _, scene := range payload.Scenes {
		script.Scenes = append(script.Scenes, models.Scene{
			Narration:   scene.Narration,
			ImagePrompt: scene.ImagePrompt,
		})
	}

	if err := h.Stores.Scripts.CreateScript(c.Context(), script); err != nil {
		h.Logger.WithError(err).Error("Failed to store script")
		return utils.RespondWithFault(c, err)
	}

	h.Logger.WithField("script_id", script.ID).Info("Script created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, script)
}

// GetScript retrieves a script by id.
// GET /api/v1/scripts/:id
func (h *ApplicationHandler) GetScript(c *fiber.Ctx) error {
	scriptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid script ID format")
	}

	script, err := h.Stores.Scripts.GetScript(c.Context(), scriptID)
	if err != nil {
		return utils.RespondWithFault(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, script)
}

// GenerateScriptRequest asks the text model to write a script for a topic.
type GenerateScriptRequest struct {
	Topic string `json:"topic" validate:"required,min=3"`
}

// GenerateScript writes and stores an AI-generated script.
// POST /api/v1/scripts/generate
func (h *ApplicationHandler) GenerateScript(c *fiber.Ctx) error {
	if h.Scripts == nil {
		return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Script generation is not configured")
	}

	payload := new(GenerateScriptRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %s", strings.Join(utils.FormatValidationErrors(err), "; ")))
	}

	script, err := h.Scripts.GenerateScript(c.Context(), payload.Topic)
	if err != nil {
		h.Logger.WithError(err).WithField("topic", payload.Topic).Error("Script generation failed")
		return utils.RespondWithFault(c, err)
	}
	if err := h.Stores.Scripts.CreateScript(c.Context(), script); err != nil {
		h.Logger.WithError(err).Error("Failed to store generated script")
		return utils.RespondWithFault(c, err)
	}

	h.Logger.WithFields(map[string]interface{}{
		"script_id": script.ID,
		"scenes":    len(script.Scenes),
	}).Info("Script generated")
	return utils.RespondWithJSON(c, fiber.StatusCreated, script)
}
