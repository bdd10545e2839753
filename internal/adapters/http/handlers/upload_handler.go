package handlers

import (
	"errors"

	"solilend/internal/core/services"
	"solilend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler handles image upload endpoints
type UploadHandler struct {
	uploadService *services.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload handles an image upload
// @Summary Upload an image
// @Description Upload an identity document, selfie, or payment proof image
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param purpose formData string true "id_card | selfie | payment_proof"
// @Param file formData file true "JPEG or PNG image"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	purpose := c.FormValue("purpose")
	fh, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file is required")
	}

	record, err := h.uploadService.Store(c.Context(), memberID, purpose, fh)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownUploadKind):
			return response.BadRequest(c, "Purpose must be id_card, selfie, or payment_proof")
		case errors.Is(err, services.ErrFileTooLarge):
			return response.BadRequest(c, "File exceeds the maximum allowed size")
		case errors.Is(err, services.ErrUnsupportedFile):
			return response.BadRequest(c, "Only JPEG and PNG images are accepted")
		default:
			return response.InternalServerError(c, "Failed to store file")
		}
	}

	return response.Created(c, "File uploaded successfully", fiber.Map{"file": record})
}
