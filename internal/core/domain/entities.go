package domain

import "time"

// Role represents a user role in the cooperative
type Role string

const (
	RolePresident Role = "PRESIDENT"
	RoleSecretary Role = "SECRETARY"
	RoleOfficer   Role = "OFFICER"
	RoleMember    Role = "MEMBER"
)

// IsPrivileged reports whether the role is a back-office role.
// Plain members only ever see their own records.
func (r Role) IsPrivileged() bool {
	switch r {
	case RolePresident, RoleSecretary, RoleOfficer:
		return true
	}
	return false
}

// Permission slugs, grouped by module. Must match the seeded catalog.
const (
	PermMemberView   = "member.view"
	PermMemberManage = "member.manage"
	PermLoanView     = "loan.view"
	PermLoanCreate   = "loan.create"
	PermLoanApprove  = "loan.approve"
	PermLoanComplete = "loan.complete"
	PermLoanDelete   = "loan.delete"
	PermAuditView    = "audit.view"
	PermUserManage   = "user.manage"
)

// Loan statuses
const (
	LoanStatusPending   = "PENDING"
	LoanStatusActive    = "ACTIVE"
	LoanStatusDefaulted = "DEFAULTED"
	LoanStatusCompleted = "COMPLETED"
)

// Principal is the resolved identity for one request: who is calling,
// what role they hold, and the effective permission set (role-derived
// plus direct grants, computed at resolve time). Immutable once built.
type Principal struct {
	UserID      uint
	Username    string
	Role        Role
	Permissions map[string]struct{}
	MemberID    *uint // linked member record, nil for staff-only accounts
	ResolvedAt  time.Time
}

// HasPermission reports whether the slug is in the effective permission set.
func (p *Principal) HasPermission(slug string) bool {
	if p == nil || slug == "" {
		return false
	}
	_, ok := p.Permissions[slug]
	return ok
}

// IsLinkedTo reports whether the principal is the member with the given id.
func (p *Principal) IsLinkedTo(memberID uint) bool {
	return p != nil && p.MemberID != nil && *p.MemberID == memberID
}

// NewPrincipal builds a principal from resolved identity data.
func NewPrincipal(userID uint, username string, role Role, slugs []string, memberID *uint) *Principal {
	perms := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		if s != "" {
			perms[s] = struct{}{}
		}
	}
	return &Principal{
		UserID:      userID,
		Username:    username,
		Role:        role,
		Permissions: perms,
		MemberID:    memberID,
		ResolvedAt:  time.Now(),
	}
}
