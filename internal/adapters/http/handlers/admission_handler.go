package handlers

import (
	"errors"

	"solilend/internal/core/services"
	"solilend/internal/pkg/pagination"
	"solilend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdmissionHandler handles waiting list, duplicate review, and capacity
// policy endpoints.
type AdmissionHandler struct {
	admissionService *services.AdmissionService
	duplicateService *services.DuplicateService
	capacityService  *services.CapacityService
}

// NewAdmissionHandler creates a new admission handler
func NewAdmissionHandler(
	admissionService *services.AdmissionService,
	duplicateService *services.DuplicateService,
	capacityService *services.CapacityService,
) *AdmissionHandler {
	return &AdmissionHandler{
		admissionService: admissionService,
		duplicateService: duplicateService,
		capacityService:  capacityService,
	}
}

// ResolveDuplicateRequest represents a duplicate resolution body
type ResolveDuplicateRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

// CapacityUpdateRequest represents a capacity policy update body
type CapacityUpdateRequest struct {
	TotalCapacity        int  `json:"total_capacity"`
	AutoIncrease         bool `json:"auto_increase"`
	IncreaseThresholdPct int  `json:"increase_threshold_pct"`
	IncreaseAmount       int  `json:"increase_amount"`
}

// ListWaiting handles waiting list retrieval
// @Summary List the waiting list
// @Description List queued registrants, referral tier first, then by position
// @Tags Admission
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /waiting-list [get]
func (h *AdmissionHandler) ListWaiting(c *fiber.Ctx) error {
	entries, err := h.admissionService.ListWaiting(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list waiting list")
	}

	return response.Success(c, "Waiting list retrieved successfully", fiber.Map{"entries": entries})
}

// ActivateWaiting handles manual activation of a queued member
// @Summary Activate a waiting member
// @Description Flip a queued member to ACTIVE and remove the entry
// @Tags Admission
// @Produce json
// @Security BearerAuth
// @Param id path int true "Waiting list entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /waiting-list/{id}/activate [post]
func (h *AdmissionHandler) ActivateWaiting(c *fiber.Ctx) error {
	entryID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid entry ID")
	}

	member, err := h.admissionService.Activate(c.Context(), entryID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWaitingEntryNotFound):
			return response.NotFound(c, "Waiting list entry not found")
		default:
			return response.InternalServerError(c, "Failed to activate member")
		}
	}

	return response.Success(c, "Member activated successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// ListDuplicates handles pending duplicate listing
// @Summary List pending duplicates
// @Description List registrations parked for manual identity review
// @Tags Admission
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /duplicates [get]
func (h *AdmissionHandler) ListDuplicates(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	dups, total, err := h.duplicateService.ListPending(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list duplicates")
	}

	return response.Success(c, "Pending duplicates retrieved successfully", pagination.Response{
		Data: dups,
		Meta: pagination.GetMeta(params, total),
	})
}

// ResolveDuplicate handles duplicate resolution
// @Summary Resolve a parked registration
// @Description Approve (admit) or reject a parked registration; exactly one member is created
// @Tags Admission
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Duplicate ID"
// @Param body body ResolveDuplicateRequest true "Resolution"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /duplicates/{id}/resolve [post]
func (h *AdmissionHandler) ResolveDuplicate(c *fiber.Ctx) error {
	staffID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	dupID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid duplicate ID")
	}

	var req ResolveDuplicateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.duplicateService.Resolve(c.Context(), dupID, &services.ResolveInput{
		Approve: req.Approve,
		Note:    req.Note,
	}, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateNotFound):
			return response.NotFound(c, "Duplicate not found or already resolved")
		case errors.Is(err, services.ErrRejectNeedsReason):
			return response.BadRequest(c, "A reason is required to reject a registration")
		case errors.Is(err, services.ErrReferralCodeUnknown):
			return response.BadRequest(c, "Referral code not recognized")
		case errors.Is(err, services.ErrReferrerAtCap):
			return response.BadRequest(c, "Referral code has reached its sponsorship limit")
		default:
			return response.InternalServerError(c, "Failed to resolve duplicate")
		}
	}

	return response.Success(c, "Duplicate resolved successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// GetCapacity handles capacity status retrieval
// @Summary Get capacity status
// @Description Get the capacity policy with live usage
// @Tags Admission
// @Produce json
// @Success 200 {object} response.Response
// @Router /capacity [get]
func (h *AdmissionHandler) GetCapacity(c *fiber.Ctx) error {
	status, err := h.capacityService.Status(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get capacity status")
	}

	return response.Success(c, "Capacity status retrieved successfully", fiber.Map{"capacity": status})
}

// UpdateCapacity handles capacity policy updates
// @Summary Update the capacity policy
// @Description Rewrite the capacity policy parameters
// @Tags Admission
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CapacityUpdateRequest true "Policy parameters"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /capacity [put]
func (h *AdmissionHandler) UpdateCapacity(c *fiber.Ctx) error {
	adminID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CapacityUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.TotalCapacity < 0 {
		return response.BadRequest(c, "Total capacity must not be negative")
	}

	status, err := h.capacityService.Update(c.Context(), &services.UpdateInput{
		TotalCapacity:        req.TotalCapacity,
		AutoIncrease:         req.AutoIncrease,
		IncreaseThresholdPct: req.IncreaseThresholdPct,
		IncreaseAmount:       req.IncreaseAmount,
	}, adminID)
	if err != nil {
		return response.InternalServerError(c, "Failed to update capacity policy")
	}

	return response.Success(c, "Capacity policy updated successfully", fiber.Map{"capacity": status})
}
