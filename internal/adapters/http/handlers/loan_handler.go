package handlers

import (
	"errors"
	"strconv"

	"solilend/internal/core/domain"
	"solilend/internal/core/services"
	"solilend/internal/pkg/pagination"
	"solilend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan lifecycle endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents a loan request body
type CreateLoanRequest struct {
	RequestedAmount float64 `json:"requested_amount"`
	Purpose         string  `json:"purpose"`
}

// DecisionRequest carries an optional decision note
type DecisionRequest struct {
	Note *string `json:"note,omitempty"`
}

// SubmitProofRequest carries the payment proof URL
type SubmitProofRequest struct {
	ProofURL string `json:"proof_url"`
}

// Create handles a new loan request
// @Summary Request a loan
// @Description Open a loan application for the authenticated member
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateLoanRequest true "Loan request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Create(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loan, err := h.loanService.Create(c.Context(), memberID, &services.CreateInput{
		RequestedAmount: req.RequestedAmount,
		Purpose:         req.Purpose,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAmountNotPositive):
			return response.BadRequest(c, "Requested amount must be positive")
		case errors.Is(err, services.ErrAmountExceedsLimit):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, services.ErrBorrowerNotActive):
			return response.Forbidden(c, "Only active members can request loans")
		case errors.Is(err, services.ErrOpenLoanExists):
			return response.Conflict(c, "An open loan already exists for this member")
		default:
			return response.InternalServerError(c, "Failed to create loan")
		}
	}

	return response.Created(c, "Loan requested successfully", fiber.Map{"loan": loan})
}

// List handles staff-side loan listing
// @Summary List loans
// @Description List loans, optionally filtered by status
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Loan status filter"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	var status *domain.LoanStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.LoanStatus(raw)
		status = &s
	}

	loans, total, err := h.loanService.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.Response{
		Data: loans,
		Meta: pagination.GetMeta(params, total),
	})
}

// MyLoans handles the borrower's own loan listing
// @Summary List my loans
// @Description List the authenticated member's loans with installments
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/me [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loans, err := h.loanService.ListByMember(c.Context(), memberID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{"loans": loans})
}

// Get handles fetching one loan
// @Summary Get a loan
// @Description Get a loan with its repayment schedule. Clients only see their own loans.
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	// Staff see any loan; clients only their own
	requesterID := uint(0)
	role, _ := c.Locals("memberRole").(domain.Role)
	if !role.IsStaff() {
		requesterID, _ = c.Locals("memberID").(uint)
	}

	loan, err := h.loanService.GetByID(c.Context(), loanID, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrNotLoanOwner):
			return response.Forbidden(c, "Loan does not belong to this member")
		default:
			return response.InternalServerError(c, "Failed to get loan")
		}
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{"loan": loan})
}

// Approve handles loan approval
// @Summary Approve a loan
// @Description Approve a pending loan and generate its repayment schedule
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DecisionRequest false "Decision note"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, "approve")
}

// Reject handles loan rejection
// @Summary Reject a loan
// @Description Reject a pending loan; a decision note is mandatory
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DecisionRequest true "Decision note"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, "reject")
}

func (h *LoanHandler) decide(c *fiber.Ctx, action string) error {
	staffID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req DecisionRequest
	_ = c.BodyParser(&req)

	var loan interface{}
	var message string
	if action == "approve" {
		loan, err = h.loanService.Approve(c.Context(), loanID, staffID, req.Note)
		message = "Loan approved successfully"
	} else {
		loan, err = h.loanService.Reject(c.Context(), loanID, staffID, req.Note)
		message = "Loan rejected successfully"
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrRejectNeedsNote):
			return response.BadRequest(c, "A decision note is required to reject a loan")
		case domain.IsInvalidTransition(err):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to "+action+" loan")
		}
	}

	return response.Success(c, message, fiber.Map{"loan": loan})
}

// Disburse handles loan disbursement
// @Summary Disburse a loan
// @Description Mark an approved loan as paid out to the member
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/disburse [post]
func (h *LoanHandler) Disburse(c *fiber.Ctx) error {
	staffID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.Disburse(c.Context(), loanID, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case domain.IsInvalidTransition(err):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to disburse loan")
		}
	}

	return response.Success(c, "Loan disbursed successfully", fiber.Map{"loan": loan})
}

// SubmitProof handles a borrower's payment proof submission
// @Summary Submit payment proof
// @Description Attach a payment proof to an installment and flag it for confirmation
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param number path int true "Installment number"
// @Param body body SubmitProofRequest true "Proof URL"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/installments/{number}/proof [post]
func (h *LoanHandler) SubmitProof(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number < 1 {
		return response.BadRequest(c, "Invalid installment number")
	}

	var req SubmitProofRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	inst, err := h.loanService.SubmitProof(c.Context(), loanID, number, memberID, req.ProofURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrInstallmentNotFound):
			return response.NotFound(c, "Installment not found")
		case errors.Is(err, services.ErrNotLoanOwner):
			return response.Forbidden(c, "Loan does not belong to this member")
		case errors.Is(err, services.ErrProofRequired):
			return response.BadRequest(c, "A payment proof URL is required")
		case domain.IsInvalidTransition(err):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to submit proof")
		}
	}

	return response.Success(c, "Payment proof submitted", fiber.Map{"installment": inst})
}

// ConfirmPayment handles staff payment confirmation
// @Summary Confirm an installment payment
// @Description Confirm that an installment payment arrived; settles the loan when it was the last one
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param number path int true "Installment number"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/installments/{number}/confirm [post]
func (h *LoanHandler) ConfirmPayment(c *fiber.Ctx) error {
	staffID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number < 1 {
		return response.BadRequest(c, "Invalid installment number")
	}

	inst, err := h.loanService.ConfirmPayment(c.Context(), loanID, number, staffID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrInstallmentNotFound):
			return response.NotFound(c, "Installment not found")
		case errors.Is(err, services.ErrInstallmentAlreadyPaid):
			return response.Conflict(c, "Installment already confirmed as paid")
		case domain.IsInvalidTransition(err):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to confirm payment")
		}
	}

	return response.Success(c, "Payment confirmed", fiber.Map{"installment": inst})
}

// MarkDefault handles manual default escalation
// @Summary Mark a loan as defaulted
// @Description Escalate a disbursed loan to DEFAULT
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DecisionRequest false "Decision note"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/default [post]
func (h *LoanHandler) MarkDefault(c *fiber.Ctx) error {
	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req DecisionRequest
	_ = c.BodyParser(&req)

	loan, err := h.loanService.MarkDefault(c.Context(), loanID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case domain.IsInvalidTransition(err):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to mark loan as defaulted")
		}
	}

	return response.Success(c, "Loan marked as defaulted", fiber.Map{"loan": loan})
}

// parseIDParam parses a positive uint path parameter
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
