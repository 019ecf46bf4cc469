package handlers

import (
	"time"

	"coop-backoffice/internal/core/services"
	"coop-backoffice/internal/pkg/pagination"
	"coop-backoffice/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuditHandler exposes the audit trail query surface. Every route here
// sits behind the audit.view permission.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// sinceParam parses the since query parameter, default last 24 hours
func sinceParam(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("since")
	if raw == "" {
		return time.Now().Add(-24 * time.Hour), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// EntityTrail returns the full history of one entity
// @Summary Entity audit trail
// @Description All audit entries for one entity, newest first
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Entity type"
// @Param id path int true "Entity ID"
// @Success 200 {object} response.Response
// @Router /audit/entity/{type}/{id} [get]
func (h *AuditHandler) EntityTrail(c *fiber.Ctx) error {
	entityType := c.Params("type")
	entityID, err := c.ParamsInt("id")
	if err != nil || entityID <= 0 {
		return response.BadRequest(c, "Invalid entity ID")
	}

	params := pagination.GetParams(c)
	entries, total, err := h.auditService.GetEntityTrail(c.Context(), entityType, uint(entityID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Audit trail retrieved successfully", pagination.NewResponse(entries, params, total))
}

// ActorTrail returns everything one user did
// @Summary Actor audit trail
// @Description All audit entries recorded for one actor, newest first
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Actor user ID"
// @Success 200 {object} response.Response
// @Router /audit/actor/{id} [get]
func (h *AuditHandler) ActorTrail(c *fiber.Ctx) error {
	actorID, err := c.ParamsInt("id")
	if err != nil || actorID <= 0 {
		return response.BadRequest(c, "Invalid actor ID")
	}

	params := pagination.GetParams(c)
	entries, total, err := h.auditService.GetActorTrail(c.Context(), uint(actorID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Audit trail retrieved successfully", pagination.NewResponse(entries, params, total))
}

// ByAction returns entries for one action
// @Summary Audit entries by action
// @Description Audit entries matching one action, newest first
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param action query string true "Action name"
// @Success 200 {object} response.Response
// @Router /audit/actions [get]
func (h *AuditHandler) ByAction(c *fiber.Ctx) error {
	action := c.Query("action")
	if action == "" {
		return response.BadRequest(c, "Action is required")
	}

	params := pagination.GetParams(c)
	entries, total, err := h.auditService.GetByAction(c.Context(), action, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Audit trail retrieved successfully", pagination.NewResponse(entries, params, total))
}

// TimeRange returns entries within a window
// @Summary Audit entries by time range
// @Description Audit entries with created_at in [from, to)
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param from query string true "Window start (RFC3339)"
// @Param to query string true "Window end (RFC3339)"
// @Success 200 {object} response.Response
// @Router /audit/range [get]
func (h *AuditHandler) TimeRange(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return response.BadRequest(c, "Invalid from timestamp")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return response.BadRequest(c, "Invalid to timestamp")
	}

	entries, err := h.auditService.GetByTimeRange(c.Context(), from, to)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Audit trail retrieved successfully", entries)
}

// Critical returns delete and override entries
// @Summary Critical actions
// @Description Delete and override entries since the cutoff
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param since query string false "Cutoff (RFC3339), default 24h ago"
// @Success 200 {object} response.Response
// @Router /audit/critical [get]
func (h *AuditHandler) Critical(c *fiber.Ctx) error {
	since, err := sinceParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid since timestamp")
	}

	entries, err := h.auditService.GetCriticalActions(c.Context(), since)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Critical actions retrieved successfully", entries)
}

// Violations returns access-denied entries
// @Summary Role violations
// @Description Access-denied entries since the cutoff
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param since query string false "Cutoff (RFC3339), default 24h ago"
// @Success 200 {object} response.Response
// @Router /audit/violations [get]
func (h *AuditHandler) Violations(c *fiber.Ctx) error {
	since, err := sinceParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid since timestamp")
	}

	entries, err := h.auditService.GetRoleViolations(c.Context(), since)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Role violations retrieved successfully", entries)
}

// OffHours returns activity outside business hours
// @Summary Off-hours activity
// @Description Entries recorded outside the configured business hours since the cutoff
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param since query string false "Cutoff (RFC3339), default 24h ago"
// @Success 200 {object} response.Response
// @Router /audit/off-hours [get]
func (h *AuditHandler) OffHours(c *fiber.Ctx) error {
	since, err := sinceParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid since timestamp")
	}

	entries, err := h.auditService.GetOffHoursActivity(c.Context(), since)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Off-hours activity retrieved successfully", entries)
}

// Summary returns per-actor activity counts
// @Summary Activity summary
// @Description Per-actor entry counts since the cutoff, most active first
// @Tags Audit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param since query string false "Cutoff (RFC3339), default 24h ago"
// @Success 200 {object} response.Response
// @Router /audit/summary [get]
func (h *AuditHandler) Summary(c *fiber.Ctx) error {
	since, err := sinceParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid since timestamp")
	}

	summary, err := h.auditService.GetActivitySummary(c.Context(), since)
	if err != nil {
		return response.InternalServerError(c, "Failed to query audit trail")
	}

	return response.Success(c, "Activity summary retrieved successfully", summary)
}
