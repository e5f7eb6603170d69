package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/framecraft/api/internal/middleware"
	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/scheduler"
	"github.com/framecraft/api/internal/store"
	"github.com/framecraft/api/pkg/response"
)

type EditHandler struct {
	scheduler *scheduler.Scheduler
	validator *validator.Validate
}

func NewEditHandler(sched *scheduler.Scheduler, v *validator.Validate) *EditHandler {
	return &EditHandler{
		scheduler: sched,
		validator: v,
	}
}

// Submit handles POST /api/edits
func (h *EditHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitEditRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.scheduler.Submit(c.Context(), req.AssetID, middleware.GetUserID(c), req.Operation)
	if err != nil {
		if errors.Is(err, model.ErrInvalidOperation) {
			return response.ValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		if errors.Is(err, store.ErrAssetDeleted) {
			return response.Error(c, fiber.StatusGone, response.CodeAssetDeleted, "Asset has been deleted", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, &model.SubmitEditResponse{
		JobID:     job.ID,
		AssetID:   job.AssetID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

// Status handles GET /api/edits/:jobId
func (h *EditHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.scheduler.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.NewJobStatusResponse(job))
}
