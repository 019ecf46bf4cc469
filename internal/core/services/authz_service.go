package services

import (
	"coop-backoffice/internal/core/domain"

	"github.com/rs/zerolog"
)

// Target identifies an optional object scope for a permission check.
type Target struct {
	Type string
	ID   uint
}

// AuthzService answers permission questions about a resolved principal.
// It is a pure function of the principal snapshot: no lookups, no side
// effects, safe to call from any number of request goroutines.
type AuthzService struct {
	logger zerolog.Logger
}

// NewAuthzService creates a new authorization service
func NewAuthzService(logger zerolog.Logger) *AuthzService {
	return &AuthzService{logger: logger}
}

// HasPermission reports whether the principal holds the permission.
// A nil principal or empty slug is an ordinary "no", never an error.
// The target is accepted for callers that have one but the base
// evaluator ignores it; object-scoped decisions belong to the
// relationship evaluators layered on top.
func (s *AuthzService) HasPermission(p *domain.Principal, slug string, target ...Target) bool {
	if p == nil || slug == "" {
		return false
	}
	return p.HasPermission(slug)
}

// CanApproveOwnWork enforces separation of duties: the recorded creator
// of a record may not approve it, even when they hold the approve
// permission. An unrecorded creator allows the approval; there is
// nothing to enforce against, and refusing would block every legacy
// record. Approval operations must call this explicitly, it is not
// folded into HasPermission.
func (s *AuthzService) CanApproveOwnWork(p *domain.Principal, createdBy *uint) bool {
	if p == nil {
		return false
	}
	if createdBy == nil {
		return true
	}
	if *createdBy == p.UserID {
		s.logger.Warn().
			Uint("user_id", p.UserID).
			Str("username", p.Username).
			Msg("self-approval attempt blocked")
		return false
	}
	return true
}
