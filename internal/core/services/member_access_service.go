package services

import "coop-backoffice/internal/core/domain"

// MemberAccessService decides who may see a member record.
type MemberAccessService struct{}

// NewMemberAccessService creates a new member access evaluator
func NewMemberAccessService() *MemberAccessService {
	return &MemberAccessService{}
}

// CanViewMember grants back-office roles visibility of every member and
// plain members visibility of exactly their own linked record. There is
// no other path in.
func (s *MemberAccessService) CanViewMember(p *domain.Principal, memberID uint) bool {
	if p == nil {
		return false
	}
	if p.Role.IsPrivileged() {
		return true
	}
	return p.IsLinkedTo(memberID)
}
