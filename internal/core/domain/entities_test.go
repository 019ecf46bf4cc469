package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleIsPrivileged(t *testing.T) {
	assert.True(t, RolePresident.IsPrivileged())
	assert.True(t, RoleSecretary.IsPrivileged())
	assert.True(t, RoleOfficer.IsPrivileged())
	assert.False(t, RoleMember.IsPrivileged())
	assert.False(t, Role("INTRUDER").IsPrivileged())
}

func TestPrincipalHasPermission(t *testing.T) {
	p := NewPrincipal(1, "officer", RoleOfficer, []string{PermLoanView, PermLoanCreate}, nil)

	assert.True(t, p.HasPermission(PermLoanView))
	assert.False(t, p.HasPermission(PermLoanApprove))
	assert.False(t, p.HasPermission(""))

	var nilP *Principal
	assert.False(t, nilP.HasPermission(PermLoanView))
}

func TestPrincipalIsLinkedTo(t *testing.T) {
	memberID := uint(12)
	linked := NewPrincipal(1, "member", RoleMember, nil, &memberID)
	staff := NewPrincipal(2, "officer", RoleOfficer, nil, nil)

	assert.True(t, linked.IsLinkedTo(12))
	assert.False(t, linked.IsLinkedTo(13))
	assert.False(t, staff.IsLinkedTo(12))

	var nilP *Principal
	assert.False(t, nilP.IsLinkedTo(12))
}

func TestNewPrincipalDropsEmptySlugs(t *testing.T) {
	p := NewPrincipal(1, "u", RoleMember, []string{"", PermAuditView, ""}, nil)
	assert.Len(t, p.Permissions, 1)
	assert.True(t, p.HasPermission(PermAuditView))
}
