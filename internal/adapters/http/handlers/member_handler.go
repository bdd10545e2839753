package handlers

import (
	"errors"
	"strings"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"
	"solilend/internal/core/services"
	"solilend/internal/pkg/pagination"
	"solilend/internal/pkg/password"
	"solilend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MemberHandler handles client and staff administration endpoints
type MemberHandler struct {
	memberService *services.MemberService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// CreateClientRequest represents a staff-created client body
type CreateClientRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"` // YYYY-MM-DD
}

// CreateStaffRequest represents a staff account body
type CreateStaffRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// ChangeRoleRequest represents a role change body
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ListClients handles client listing
// @Summary List clients
// @Description List client accounts with pagination
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /clients [get]
func (h *MemberHandler) ListClients(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	clients, total, err := h.memberService.ListClients(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list clients")
	}

	return response.Success(c, "Clients retrieved successfully", pagination.Response{
		Data: toResponses(clients),
		Meta: pagination.GetMeta(params, total),
	})
}

// GetClient handles fetching one client profile
// @Summary Get a client
// @Description Get a client profile by ID
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /clients/{id} [get]
func (h *MemberHandler) GetClient(c *fiber.Ctx) error {
	memberID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.GetProfile(c.Context(), memberID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		default:
			return response.InternalServerError(c, "Failed to get member")
		}
	}

	return response.Success(c, "Member retrieved successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// CreateClient handles staff-side client creation
// @Summary Create a client
// @Description Create a client account directly as ACTIVE, bypassing the waiting list
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateClientRequest true "Client data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /clients [post]
func (h *MemberHandler) CreateClient(c *fiber.Ctx) error {
	var req CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return response.BadRequest(c, "Email, first name, and last name are required")
	}
	if err := password.Validate(req.Password); err != nil {
		return response.BadRequest(c, err.Error())
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return response.BadRequest(c, "Birth date must be YYYY-MM-DD")
	}

	member, err := h.memberService.CreateClient(c.Context(), &services.CreateClientInput{
		Email:      strings.TrimSpace(strings.ToLower(req.Email)),
		Password:   req.Password,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      req.Phone,
		NationalID: strings.TrimSpace(req.NationalID),
		BirthDate:  birthDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return response.Conflict(c, "Email already registered")
		default:
			return response.InternalServerError(c, "Failed to create client")
		}
	}

	return response.Created(c, "Client created successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// RemoveClient handles client removal
// @Summary Remove a client
// @Description Flip a client to REMOVED and revoke their sessions
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /clients/{id} [delete]
func (h *MemberHandler) RemoveClient(c *fiber.Ctx) error {
	memberID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	if err := h.memberService.RemoveClient(c.Context(), memberID); err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, services.ErrNotAClient):
			return response.BadRequest(c, "Member is not a client")
		default:
			return response.InternalServerError(c, "Failed to remove client")
		}
	}

	return response.Success(c, "Client removed successfully", nil)
}

// ListStaff handles staff listing
// @Summary List staff
// @Description List all staff accounts
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /staff [get]
func (h *MemberHandler) ListStaff(c *fiber.Ctx) error {
	staff, err := h.memberService.ListStaff(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list staff")
	}

	return response.Success(c, "Staff retrieved successfully", fiber.Map{
		"staff": toResponses(staff),
	})
}

// CreateStaff handles staff account creation
// @Summary Create a staff account
// @Description Create a MODERATOR, ADMIN, or SUPER_ADMIN account
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateStaffRequest true "Staff data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /staff [post]
func (h *MemberHandler) CreateStaff(c *fiber.Ctx) error {
	var req CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		return response.BadRequest(c, "Email, first name, and last name are required")
	}
	if err := password.Validate(req.Password); err != nil {
		return response.BadRequest(c, err.Error())
	}

	member, err := h.memberService.CreateStaff(c.Context(), &services.CreateStaffInput{
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		Role:      domain.Role(strings.ToUpper(req.Role)),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Role must be MODERATOR, ADMIN, or SUPER_ADMIN")
		case errors.Is(err, services.ErrEmailTaken):
			return response.Conflict(c, "Email already registered")
		default:
			return response.InternalServerError(c, "Failed to create staff account")
		}
	}

	return response.Created(c, "Staff account created successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// ChangeRole handles staff role changes
// @Summary Change a staff role
// @Description Change a staff member's role; demoting the last SUPER_ADMIN is refused
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body ChangeRoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /staff/{id}/role [put]
func (h *MemberHandler) ChangeRole(c *fiber.Ctx) error {
	actorID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	staffID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.ChangeRole(c.Context(), actorID, staffID, domain.Role(strings.ToUpper(req.Role)))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Role must be MODERATOR, ADMIN, or SUPER_ADMIN")
		case errors.Is(err, services.ErrNotStaff):
			return response.BadRequest(c, "Member is not a staff account")
		case errors.Is(err, services.ErrSelfDemotion):
			return response.BadRequest(c, "Cannot change your own account")
		case errors.Is(err, services.ErrLastSuperAdmin):
			return response.Conflict(c, "Cannot demote the last super admin")
		default:
			return response.InternalServerError(c, "Failed to change role")
		}
	}

	return response.Success(c, "Role changed successfully", fiber.Map{
		"member": member.ToResponse(),
	})
}

// DeleteStaff handles staff removal
// @Summary Remove a staff account
// @Description Flip a staff account to REMOVED; removing the last SUPER_ADMIN is refused
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /staff/{id} [delete]
func (h *MemberHandler) DeleteStaff(c *fiber.Ctx) error {
	actorID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	staffID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	if err := h.memberService.DeleteStaff(c.Context(), actorID, staffID); err != nil {
		switch {
		case errors.Is(err, services.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, services.ErrNotStaff):
			return response.BadRequest(c, "Member is not a staff account")
		case errors.Is(err, services.ErrSelfDemotion):
			return response.BadRequest(c, "Cannot remove your own account")
		case errors.Is(err, services.ErrLastSuperAdmin):
			return response.Conflict(c, "Cannot remove the last super admin")
		default:
			return response.InternalServerError(c, "Failed to remove staff account")
		}
	}

	return response.Success(c, "Staff account removed successfully", nil)
}

// toResponses maps members to their DTOs
func toResponses(members []*models.Member) []*models.MemberResponse {
	out := make([]*models.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, m.ToResponse())
	}
	return out
}
