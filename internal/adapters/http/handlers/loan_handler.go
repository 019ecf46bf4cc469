package handlers

import (
	"errors"

	"coop-backoffice/internal/adapters/http/middleware"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/core/services"
	"coop-backoffice/internal/pkg/pagination"
	"coop-backoffice/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService     *services.LoanService
	guarantorAccess *services.GuarantorAccessService
	auditService    *services.AuditService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(
	loanService *services.LoanService,
	guarantorAccess *services.GuarantorAccessService,
	auditService *services.AuditService,
) *LoanHandler {
	return &LoanHandler{
		loanService:     loanService,
		guarantorAccess: guarantorAccess,
		auditService:    auditService,
	}
}

// Create handles loan application creation
// @Summary Create loan
// @Description Create a loan application with optional guarantors
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLoanInput true "Loan application"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Create(c *fiber.Ctx) error {
	var input services.CreateLoanInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.MemberID == 0 {
		return response.BadRequest(c, "Member ID is required")
	}
	if input.Amount <= 0 {
		return response.BadRequest(c, "Amount must be positive")
	}
	for _, g := range input.Guarantors {
		if g.MemberID == 0 || g.GuaranteedAmount <= 0 {
			return response.BadRequest(c, "Invalid guarantor")
		}
	}

	p := middleware.Principal(c)
	loan, err := h.loanService.Create(c.UserContext(), &input, p)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBorrowerNotFound):
			return response.NotFound(c, "Borrowing member not found")
		case errors.Is(err, services.ErrGuarantorMemberNotFound):
			return response.NotFound(c, "Guarantor member not found")
		default:
			return response.InternalServerError(c, "Failed to create loan")
		}
	}

	return response.Created(c, "Loan created successfully", loan)
}

// List lists loans
// @Summary List loans
// @Description List loans with pagination, back-office only
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	loans, total, err := h.loanService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(loans, params, total))
}

// Get returns one loan
// @Summary Get loan
// @Description Get a loan, visible to loan.view holders, the borrower, and active guarantors
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	loanID, err := c.ParamsInt("id")
	if err != nil || loanID <= 0 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetByID(c.Context(), uint(loanID))
	if err != nil {
		if errors.Is(err, services.ErrLoanNotFound) {
			return response.NotFound(c, "Loan not found")
		}
		return response.InternalServerError(c, "Failed to get loan")
	}

	p := middleware.Principal(c)
	allowed := p.HasPermission(domain.PermLoanView) || p.IsLinkedTo(loan.MemberID)
	if !allowed {
		// Third way in: an active guarantee on this loan
		allowed, err = h.guarantorAccess.CanViewLoan(c.Context(), p, loan.ID)
		if err != nil {
			return response.InternalServerError(c, "Failed to get loan")
		}
	}
	if !allowed {
		h.auditService.RecordAccessDenied(c.UserContext(), p, domain.PermLoanView, c.Path())
		return response.Forbidden(c, "You don't have permission to access this resource")
	}

	return response.Success(c, "Loan retrieved successfully", loan)
}

// MyLoans returns the caller's borrowed loans
// @Summary My loans
// @Description Loans borrowed by the caller's linked member
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	p := middleware.Principal(c)
	if p == nil || p.MemberID == nil {
		return response.Success(c, "Loans retrieved successfully", []interface{}{})
	}

	loans, err := h.loanService.GetByMemberID(c.Context(), *p.MemberID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get loans")
	}

	return response.Success(c, "Loans retrieved successfully", loans)
}

// MyGuarantees returns the loans the caller actively guarantees
// @Summary My guaranteed loans
// @Description Loans the caller's linked member holds an active guarantee on
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/guaranteed [get]
func (h *LoanHandler) MyGuarantees(c *fiber.Ctx) error {
	p := middleware.Principal(c)
	if p == nil || p.MemberID == nil {
		return response.Success(c, "Loans retrieved successfully", []interface{}{})
	}

	loans, err := h.guarantorAccess.GetGuaranteedLoans(c.Context(), *p.MemberID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get guaranteed loans")
	}

	return response.Success(c, "Loans retrieved successfully", loans)
}

// Approve handles loan approval
// @Summary Approve loan
// @Description Approve a pending loan; the creator of the application cannot approve it
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	loanID, err := c.ParamsInt("id")
	if err != nil || loanID <= 0 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	p := middleware.Principal(c)
	loan, err := h.loanService.Approve(c.UserContext(), uint(loanID), p)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotPending):
			return response.Conflict(c, "Loan is not pending approval")
		case errors.Is(err, domain.ErrSelfApproval):
			h.auditService.RecordAccessDenied(c.UserContext(), p, domain.PermLoanApprove, c.Path())
			return response.Forbidden(c, "You cannot approve a loan you created")
		default:
			return response.InternalServerError(c, "Failed to approve loan")
		}
	}

	return response.Success(c, "Loan approved successfully", loan)
}

// Complete handles loan completion
// @Summary Complete loan
// @Description Complete an active loan and release its guarantors
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/complete [post]
func (h *LoanHandler) Complete(c *fiber.Ctx) error {
	loanID, err := c.ParamsInt("id")
	if err != nil || loanID <= 0 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	p := middleware.Principal(c)
	loan, err := h.loanService.Complete(c.UserContext(), uint(loanID), p)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan is not active")
		default:
			return response.InternalServerError(c, "Failed to complete loan")
		}
	}

	return response.Success(c, "Loan completed successfully", loan)
}

// Delete handles loan deletion
// @Summary Delete loan
// @Description Soft delete a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [delete]
func (h *LoanHandler) Delete(c *fiber.Ctx) error {
	loanID, err := c.ParamsInt("id")
	if err != nil || loanID <= 0 {
		return response.BadRequest(c, "Invalid loan ID")
	}

	p := middleware.Principal(c)
	if err := h.loanService.Delete(c.UserContext(), uint(loanID), p); err != nil {
		if errors.Is(err, services.ErrLoanNotFound) {
			return response.NotFound(c, "Loan not found")
		}
		return response.InternalServerError(c, "Failed to delete loan")
	}

	return response.Success(c, "Loan deleted successfully", nil)
}
