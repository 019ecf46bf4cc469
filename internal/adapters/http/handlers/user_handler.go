package handlers

import (
	"errors"
	"strings"

	"coop-backoffice/internal/core/services"
	"coop-backoffice/internal/pkg/pagination"
	"coop-backoffice/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user administration endpoints, user.manage only
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GrantRequest represents a direct permission grant request
type GrantRequest struct {
	Slug string `json:"slug"`
}

// RoleRequest represents a role change request
type RoleRequest struct {
	Role string `json:"role"`
}

// List lists users
// @Summary List users
// @Description List user accounts with pagination
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list users")
	}

	out := make([]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}

	return response.Success(c, "Users retrieved successfully", pagination.NewResponse(out, params, total))
}

// Permissions returns the permission catalog
// @Summary Permission catalog
// @Description List every grantable permission
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users/permissions [get]
func (h *UserHandler) Permissions(c *fiber.Ctx) error {
	perms, err := h.userService.ListPermissions(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list permissions")
	}

	return response.Success(c, "Permissions retrieved successfully", perms)
}

// Grant grants a direct permission to a user
// @Summary Grant permission
// @Description Grant a catalog permission directly to a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body GrantRequest true "Permission slug"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/permissions [post]
func (h *UserHandler) Grant(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return response.BadRequest(c, "Permission slug is required")
	}

	if err := h.userService.GrantPermission(c.UserContext(), uint(userID), slug); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrUnknownPermission):
			return response.NotFound(c, "Permission not found")
		default:
			return response.InternalServerError(c, "Failed to grant permission")
		}
	}

	return response.Success(c, "Permission granted successfully", nil)
}

// Revoke removes a direct permission from a user
// @Summary Revoke permission
// @Description Remove a direct grant from a user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param slug path string true "Permission slug"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/permissions/{slug} [delete]
func (h *UserHandler) Revoke(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}
	slug := c.Params("slug")
	if slug == "" {
		return response.BadRequest(c, "Permission slug is required")
	}

	if err := h.userService.RevokePermission(c.UserContext(), uint(userID), slug); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrUnknownPermission):
			return response.NotFound(c, "Permission not found")
		default:
			return response.InternalServerError(c, "Failed to revoke permission")
		}
	}

	return response.Success(c, "Permission revoked successfully", nil)
}

// ChangeRole moves a user onto a different role
// @Summary Change role
// @Description Change a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body RoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.ChangeRole(c.UserContext(), uint(userID), strings.ToUpper(strings.TrimSpace(req.Role)))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		case errors.Is(err, services.ErrUnknownRole):
			return response.BadRequest(c, "Unknown role")
		default:
			return response.InternalServerError(c, "Failed to change role")
		}
	}

	return response.Success(c, "Role changed successfully", user.ToResponse())
}

// Deactivate disables a user account
// @Summary Deactivate user
// @Description Disable a user account
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID <= 0 {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.Deactivate(c.UserContext(), uint(userID))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to deactivate user")
	}

	return response.Success(c, "User deactivated successfully", user.ToResponse())
}
