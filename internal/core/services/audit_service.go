package services

import (
	"context"
	"encoding/json"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
)

// AuditService is the application face of the audit trail: it persists
// entries for the interceptor (implementing audit.Store) and exposes
// the query surface used by compliance tooling.
type AuditService struct {
	repo     *repositories.AuditLogRepository
	logger   zerolog.Logger
	bizStart int // business hours window, local time, start inclusive
	bizEnd   int // end exclusive
}

// NewAuditService creates a new audit service
func NewAuditService(repo *repositories.AuditLogRepository, logger zerolog.Logger, bizStart, bizEnd int) *AuditService {
	return &AuditService{
		repo:     repo,
		logger:   logger,
		bizStart: bizStart,
		bizEnd:   bizEnd,
	}
}

// Append persists one interceptor entry. SUCCESS entries ride the
// caller's transaction so they roll back with the operation; FAILED
// entries go through a detached session and survive the rollback of the
// operation they describe.
func (s *AuditService) Append(ctx context.Context, entry *audit.Entry) error {
	row := &models.AuditLog{
		RequestID:   entry.RequestID,
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		OldValues:   marshalValues(entry.OldValues),
		NewValues:   marshalValues(entry.NewValues),
		Status:      entry.Status,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
	}

	if entry.Status == audit.StatusFailed {
		return s.repo.AppendDetached(ctx, row)
	}
	return s.repo.Append(ctx, row)
}

// RecordAccessDenied writes a role-violation entry. Denials are not
// part of any business transaction, so the write is always detached.
func (s *AuditService) RecordAccessDenied(ctx context.Context, p *domain.Principal, permission, path string) {
	meta := domain.RequestMetaFromContext(ctx)
	row := &models.AuditLog{
		RequestID:   meta.RequestID,
		ActorUserID: p.UserID,
		Action:      "ACCESS_DENIED",
		Status:      models.AuditStatusFailed,
		NewValues:   marshalValues(map[string]interface{}{"permission": permission, "path": path}),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}
	if err := s.repo.AppendDetached(ctx, row); err != nil {
		s.logger.Error().Err(err).Uint("user_id", p.UserID).Msg("failed to record access denial")
	}
}

// GetEntityTrail returns the trail for one entity
func (s *AuditService) GetEntityTrail(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.repo.FindByEntity(ctx, entityType, entityID, offset, limit)
}

// GetActorTrail returns everything one user did
func (s *AuditService) GetActorTrail(ctx context.Context, actorUserID uint, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.repo.FindByActor(ctx, actorUserID, offset, limit)
}

// GetByAction returns entries for one action
func (s *AuditService) GetByAction(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error) {
	return s.repo.FindByAction(ctx, action, offset, limit)
}

// GetByTimeRange returns entries within a window
func (s *AuditService) GetByTimeRange(ctx context.Context, from, to time.Time) ([]*models.AuditLog, error) {
	return s.repo.FindByTimeRange(ctx, from, to)
}

// GetCriticalActions returns delete/override entries since the cutoff
func (s *AuditService) GetCriticalActions(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	return s.repo.FindCriticalActions(ctx, since)
}

// GetRoleViolations returns access-denied entries since the cutoff
func (s *AuditService) GetRoleViolations(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	return s.repo.FindRoleViolations(ctx, since)
}

// GetOffHoursActivity returns entries recorded outside the configured
// business-hours window since the cutoff. The hour check runs here
// rather than in SQL so the predicate is identical on every store the
// repository runs against.
func (s *AuditService) GetOffHoursActivity(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	entries, err := s.repo.FindSince(ctx, since)
	if err != nil {
		return nil, err
	}

	offHours := make([]*models.AuditLog, 0)
	for _, e := range entries {
		hour := e.CreatedAt.Local().Hour()
		if hour < s.bizStart || hour >= s.bizEnd {
			offHours = append(offHours, e)
		}
	}
	return offHours, nil
}

// GetActivitySummary returns per-actor entry counts since the cutoff
func (s *AuditService) GetActivitySummary(ctx context.Context, since time.Time) ([]repositories.ActorActivity, error) {
	return s.repo.CountByActor(ctx, since)
}

// marshalValues serializes a captured value to JSON, nil in nil out.
// Serialization failures degrade to an error marker instead of losing
// the whole entry.
func marshalValues(v interface{}) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		fallback := `{"error":"unserializable state"}`
		return &fallback
	}
	s := string(b)
	return &s
}
