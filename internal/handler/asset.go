package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/framecraft/api/internal/middleware"
	"github.com/framecraft/api/internal/model"
	"github.com/framecraft/api/internal/service"
	"github.com/framecraft/api/internal/store"
	"github.com/framecraft/api/pkg/response"
)

type AssetHandler struct {
	service   *service.AssetService
	validator *validator.Validate
}

func NewAssetHandler(svc *service.AssetService, v *validator.Validate) *AssetHandler {
	return &AssetHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/assets
func (h *AssetHandler) Create(c *fiber.Ctx) error {
	var req model.CreateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Create(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Get handles GET /api/assets/:assetId
func (h *AssetHandler) Get(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	result, err := h.service.Get(c.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Head handles GET /api/assets/:assetId/head
func (h *AssetHandler) Head(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	version, err := h.service.HeadVersion(c.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, version)
}

// History handles GET /api/assets/:assetId/versions
func (h *AssetHandler) History(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	result, err := h.service.History(c.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// GetVersion handles GET /api/versions/:versionId
func (h *AssetHandler) GetVersion(c *fiber.Ctx) error {
	versionID := c.Params("versionId")
	if versionID == "" {
		return response.ValidationError(c, "Version ID is required", nil)
	}

	version, err := h.service.GetVersion(c.Context(), versionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Version not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, version)
}

// Delete handles DELETE /api/assets/:assetId
func (h *AssetHandler) Delete(c *fiber.Ctx) error {
	assetID := c.Params("assetId")
	if assetID == "" {
		return response.ValidationError(c, "Asset ID is required", nil)
	}

	err := h.service.Delete(c.Context(), assetID, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Asset not found")
		}
		if errors.Is(err, service.ErrNotOwner) {
			return response.Forbidden(c, "Only the owner can delete an asset")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
