package services

import (
	"context"
	"testing"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPrincipalService(t *testing.T) (*PrincipalService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewPrincipalService(repositories.NewUserRepository(db), repositories.NewCatalogRepository(db)), db
}

func seedCatalogPermission(t *testing.T, db *gorm.DB, slug, module string) *models.Permission {
	t.Helper()
	p := &models.Permission{Slug: slug, Module: module}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestResolveUnionsRoleAndDirectGrants(t *testing.T) {
	s, db := newPrincipalService(t)
	ctx := context.Background()

	loanView := seedCatalogPermission(t, db, domain.PermLoanView, "loan")
	loanApprove := seedCatalogPermission(t, db, domain.PermLoanApprove, "loan")
	auditView := seedCatalogPermission(t, db, domain.PermAuditView, "audit")

	role := &models.Role{Name: string(domain.RoleSecretary), Permissions: []models.Permission{*loanView, *loanApprove}}
	require.NoError(t, db.Create(role).Error)

	memberID := uint(31)
	user := &models.User{
		Username:          "maria",
		Email:             "maria@coop.test",
		Password:          "hash",
		Role:              string(domain.RoleSecretary),
		IsActive:          true,
		MemberID:          &memberID,
		DirectPermissions: []models.Permission{*auditView},
	}
	require.NoError(t, db.Create(user).Error)

	p, err := s.Resolve(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, "maria", p.Username)
	assert.Equal(t, domain.RoleSecretary, p.Role)
	require.NotNil(t, p.MemberID)
	assert.Equal(t, memberID, *p.MemberID)

	assert.True(t, p.HasPermission(domain.PermLoanView))
	assert.True(t, p.HasPermission(domain.PermLoanApprove))
	assert.True(t, p.HasPermission(domain.PermAuditView))
	assert.False(t, p.HasPermission(domain.PermUserManage))
}

func TestResolveUnknownRoleKeepsDirectGrants(t *testing.T) {
	s, db := newPrincipalService(t)

	memberView := seedCatalogPermission(t, db, domain.PermMemberView, "member")
	user := &models.User{
		Username:          "ghost-role",
		Email:             "ghost@coop.test",
		Password:          "hash",
		Role:              "AUDITOR",
		IsActive:          true,
		DirectPermissions: []models.Permission{*memberView},
	}
	require.NoError(t, db.Create(user).Error)

	p, err := s.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	assert.True(t, p.HasPermission(domain.PermMemberView))
	assert.Len(t, p.Permissions, 1)
}

func TestResolveInactiveUser(t *testing.T) {
	s, db := newPrincipalService(t)

	user := &models.User{Username: "gone", Email: "gone@coop.test", Password: "hash", Role: string(domain.RoleMember)}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err := s.Resolve(context.Background(), user.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveMissingUser(t *testing.T) {
	s, _ := newPrincipalService(t)

	_, err := s.Resolve(context.Background(), 999)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
