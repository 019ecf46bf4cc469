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

// MemberHandler handles member register endpoints
type MemberHandler struct {
	memberService   *services.MemberService
	memberAccess    *services.MemberAccessService
	guarantorAccess *services.GuarantorAccessService
	loanService     *services.LoanService
	auditService    *services.AuditService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(
	memberService *services.MemberService,
	memberAccess *services.MemberAccessService,
	guarantorAccess *services.GuarantorAccessService,
	loanService *services.LoanService,
	auditService *services.AuditService,
) *MemberHandler {
	return &MemberHandler{
		memberService:   memberService,
		memberAccess:    memberAccess,
		guarantorAccess: guarantorAccess,
		loanService:     loanService,
		auditService:    auditService,
	}
}

// List lists members
// @Summary List members
// @Description List members with pagination, back-office only
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	members, total, err := h.memberService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	return response.Success(c, "Members retrieved successfully", pagination.NewResponse(members, params, total))
}

// Get returns one member record
// @Summary Get member
// @Description Get a member record, visible to back-office roles and the member themselves
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	memberID, err := c.ParamsInt("id")
	if err != nil || memberID <= 0 {
		return response.BadRequest(c, "Invalid member ID")
	}

	p := middleware.Principal(c)
	if !h.memberAccess.CanViewMember(p, uint(memberID)) {
		h.auditService.RecordAccessDenied(c.UserContext(), p, domain.PermMemberView, c.Path())
		return response.Forbidden(c, "You don't have permission to access this resource")
	}

	member, err := h.memberService.GetByID(c.Context(), uint(memberID))
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to get member")
	}

	return response.Success(c, "Member retrieved successfully", member)
}

// Loans returns the member's borrowed loans
// @Summary Get member loans
// @Description Loans borrowed by a member, visible to back-office roles and the member themselves
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members/{id}/loans [get]
func (h *MemberHandler) Loans(c *fiber.Ctx) error {
	memberID, err := c.ParamsInt("id")
	if err != nil || memberID <= 0 {
		return response.BadRequest(c, "Invalid member ID")
	}

	p := middleware.Principal(c)
	if !h.memberAccess.CanViewMember(p, uint(memberID)) {
		h.auditService.RecordAccessDenied(c.UserContext(), p, domain.PermLoanView, c.Path())
		return response.Forbidden(c, "You don't have permission to access this resource")
	}

	loans, err := h.loanService.GetByMemberID(c.Context(), uint(memberID))
	if err != nil {
		return response.InternalServerError(c, "Failed to get loans")
	}

	return response.Success(c, "Loans retrieved successfully", loans)
}

// GuaranteedLoans returns the loans the member actively guarantees
// @Summary Get guaranteed loans
// @Description Loans the member holds an active guarantee on; completed loans drop out
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /members/{id}/guaranteed-loans [get]
func (h *MemberHandler) GuaranteedLoans(c *fiber.Ctx) error {
	memberID, err := c.ParamsInt("id")
	if err != nil || memberID <= 0 {
		return response.BadRequest(c, "Invalid member ID")
	}

	p := middleware.Principal(c)
	if !h.memberAccess.CanViewMember(p, uint(memberID)) {
		h.auditService.RecordAccessDenied(c.UserContext(), p, domain.PermLoanView, c.Path())
		return response.Forbidden(c, "You don't have permission to access this resource")
	}

	loans, err := h.guarantorAccess.GetGuaranteedLoans(c.Context(), uint(memberID))
	if err != nil {
		return response.InternalServerError(c, "Failed to get guaranteed loans")
	}

	return response.Success(c, "Guaranteed loans retrieved successfully", loans)
}
