package services

import (
	"context"
	"testing"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuditService(t *testing.T) (*AuditService, *repositories.AuditLogRepository, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	repo := repositories.NewAuditLogRepository(db)
	return NewAuditService(repo, zerolog.Nop(), 8, 18), repo, db
}

func TestAppendSerializesValues(t *testing.T) {
	s, repo, _ := newAuditService(t)
	ctx := context.Background()

	err := s.Append(ctx, &audit.Entry{
		RequestID:   "req-1",
		ActorUserID: 4,
		Action:      "MEMBER_UPDATE",
		EntityType:  "Member",
		EntityID:    12,
		OldValues:   map[string]interface{}{"FullName": "Old Name"},
		NewValues:   map[string]interface{}{"FullName": "New Name"},
		Status:      audit.StatusSuccess,
		IPAddress:   "10.0.0.1",
		UserAgent:   "go-test",
	})
	require.NoError(t, err)

	entries := auditEntries(t, repo, "MEMBER_UPDATE")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditStatusSuccess, e.Status)
	assert.Equal(t, uint(12), e.EntityID)
	require.NotNil(t, e.OldValues)
	assert.Contains(t, *e.OldValues, `"Old Name"`)
	require.NotNil(t, e.NewValues)
	assert.Contains(t, *e.NewValues, `"New Name"`)
}

func TestAppendDegradesUnserializableState(t *testing.T) {
	s, repo, _ := newAuditService(t)

	err := s.Append(context.Background(), &audit.Entry{
		ActorUserID: 4,
		Action:      "MEMBER_UPDATE",
		NewValues:   map[string]interface{}{"ch": make(chan int)},
		Status:      audit.StatusSuccess,
	})
	require.NoError(t, err)

	entries := auditEntries(t, repo, "MEMBER_UPDATE")
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].NewValues)
	assert.Contains(t, *entries[0].NewValues, "unserializable state")
}

func TestRecordAccessDenied(t *testing.T) {
	s, repo, _ := newAuditService(t)
	p := memberPrincipal(7, 3)

	s.RecordAccessDenied(principalCtx(p), p, "loan.approve", "/api/v1/loans/5/approve")

	entries := auditEntries(t, repo, "ACCESS_DENIED")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditStatusFailed, e.Status)
	assert.Equal(t, uint(7), e.ActorUserID)
	assert.Equal(t, "127.0.0.1", e.IPAddress)
	require.NotNil(t, e.NewValues)
	assert.Contains(t, *e.NewValues, "loan.approve")
	assert.Contains(t, *e.NewValues, "/api/v1/loans/5/approve")
}

func TestGetOffHoursActivity(t *testing.T) {
	s, _, db := newAuditService(t)
	ctx := context.Background()

	today := time.Now().Local()
	at := func(hour int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day(), hour, 30, 0, 0, time.Local)
	}

	for _, row := range []*models.AuditLog{
		{ActorUserID: 1, Action: "EARLY_BIRD", Status: models.AuditStatusSuccess, CreatedAt: at(7)},
		{ActorUserID: 1, Action: "LUNCH_TIME", Status: models.AuditStatusSuccess, CreatedAt: at(12)},
		{ActorUserID: 1, Action: "NIGHT_OWL", Status: models.AuditStatusSuccess, CreatedAt: at(19)},
	} {
		require.NoError(t, db.Create(row).Error)
	}

	since := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	entries, err := s.GetOffHoursActivity(ctx, since)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	assert.Contains(t, actions, "EARLY_BIRD")
	assert.Contains(t, actions, "NIGHT_OWL")
}

func TestGetActivitySummary(t *testing.T) {
	s, _, db := newAuditService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.AuditLog{ActorUserID: 1, Action: "LOAN_CREATE", Status: models.AuditStatusSuccess}).Error)
	}
	require.NoError(t, db.Create(&models.AuditLog{ActorUserID: 2, Action: "LOAN_APPROVAL", Status: models.AuditStatusSuccess}).Error)

	rows, err := s.GetActivitySummary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, uint(1), rows[0].ActorUserID)
	assert.EqualValues(t, 3, rows[0].Count)
	assert.Equal(t, uint(2), rows[1].ActorUserID)
	assert.EqualValues(t, 1, rows[1].Count)
}
