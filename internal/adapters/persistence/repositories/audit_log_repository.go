package repositories

import (
	"context"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// AuditLogRepository handles audit trail persistence. The write surface
// is insert-only: no update or delete methods exist on purpose.
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append inserts an entry inside the caller's unit of work, so a
// rollback of the business operation also rolls back the entry.
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return dbFrom(ctx, r.db).Create(entry).Error
}

// AppendDetached inserts an entry on the base session, bypassing any
// transaction bound to ctx. Used for FAILED entries, which must survive
// the rollback of the operation they describe.
func (r *AuditLogRepository) AppendDetached(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByEntity returns the trail for one entity, newest first
func (r *AuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	q := dbFrom(ctx, r.db).Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	q.Count(&total)

	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

// FindByActor returns everything one user did, newest first
func (r *AuditLogRepository) FindByActor(ctx context.Context, actorUserID uint, offset, limit int) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	q := dbFrom(ctx, r.db).Model(&models.AuditLog{}).
		Where("actor_user_id = ?", actorUserID)
	q.Count(&total)

	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

// FindByAction returns entries for one action, newest first
func (r *AuditLogRepository) FindByAction(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	q := dbFrom(ctx, r.db).Model(&models.AuditLog{}).
		Where("action = ?", action)
	q.Count(&total)

	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}

// FindByTimeRange returns entries in [from, to), newest first
func (r *AuditLogRepository) FindByTimeRange(ctx context.Context, from, to time.Time) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := dbFrom(ctx, r.db).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// FindCriticalActions returns delete/override style entries since the
// cutoff, newest first. These are the entries investigators check first.
func (r *AuditLogRepository) FindCriticalActions(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := dbFrom(ctx, r.db).
		Where("created_at >= ?", since).
		Where("action LIKE ? OR action LIKE ?", "%DELETE%", "%OVERRIDE%").
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// FindRoleViolations returns access-denied entries since the cutoff,
// newest first.
func (r *AuditLogRepository) FindRoleViolations(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := dbFrom(ctx, r.db).
		Where("created_at >= ?", since).
		Where("action LIKE ?", "ACCESS_DENIED%").
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// FindSince returns every entry since the cutoff, newest first
func (r *AuditLogRepository) FindSince(ctx context.Context, since time.Time) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := dbFrom(ctx, r.db).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// ActorActivity is one row of the per-actor activity summary
type ActorActivity struct {
	ActorUserID uint  `json:"actor_user_id"`
	Count       int64 `json:"count"`
}

// CountByActor groups entries since the cutoff by actor, busiest first
func (r *AuditLogRepository) CountByActor(ctx context.Context, since time.Time) ([]ActorActivity, error) {
	var rows []ActorActivity
	err := dbFrom(ctx, r.db).Model(&models.AuditLog{}).
		Select("actor_user_id, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("actor_user_id").
		Order("count DESC").
		Find(&rows).Error
	return rows, err
}
