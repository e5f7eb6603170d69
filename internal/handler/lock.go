package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/framecraft/api/internal/lock"
	"github.com/framecraft/api/internal/middleware"
	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/service"
	"github.com/framecraft/api/internal/store"
	"github.com/framecraft/api/pkg/response"
)

type LockHandler struct {
	service   *service.LockService
	validator *validator.Validate
}

func NewLockHandler(svc *service.LockService, v *validator.Validate) *LockHandler {
	return &LockHandler{
		service:   svc,
		validator: v,
	}
}

// Acquire handles POST /api/assets/:assetId/lock
func (h *LockHandler) Acquire(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	var req model.AcquireLockRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
		if err := h.validator.Struct(&req); err != nil {
			return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
		}
	}

	l, err := h.service.Acquire(c.Context(), assetID, middleware.GetUserID(c), time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return response.NotFound(c, "Asset not found")
		case errors.Is(err, store.ErrAssetDeleted):
			return response.Error(c, fiber.StatusGone, response.CodeAssetDeleted, "Asset has been deleted", nil)
		case errors.Is(err, service.ErrNotAuthorized):
			return response.Forbidden(c, "Not authorized to lock this asset")
		case errors.Is(err, lock.ErrLockHeld):
			return response.LockHeld(c, "Asset is locked by another holder")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.NewLockResponse(l))
}

// Release handles DELETE /api/assets/:assetId/lock
func (h *LockHandler) Release(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	if err := h.service.Release(c.Context(), assetID, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, lock.ErrNotHolder) {
			return response.NotLockHolder(c, "Lock is held by a different holder")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

// Get handles GET /api/assets/:assetId/lock
func (h *LockHandler) Get(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	l, err := h.service.Get(c.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		if errors.Is(err, lock.ErrNoLock) {
			return response.NotFound(c, "No lock held on this asset")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.NewLockResponse(l))
}
