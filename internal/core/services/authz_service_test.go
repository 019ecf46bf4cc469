package services

import (
	"testing"

	"coop-backoffice/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	s := NewAuthzService(zerolog.Nop())
	p := officerPrincipal(1)

	assert.True(t, s.HasPermission(p, domain.PermLoanView))
	assert.False(t, s.HasPermission(p, domain.PermLoanApprove))
	assert.False(t, s.HasPermission(p, ""))
	assert.False(t, s.HasPermission(nil, domain.PermLoanView))

	// Target is accepted but does not change the answer
	assert.True(t, s.HasPermission(p, domain.PermLoanView, Target{Type: "Loan", ID: 9}))
}

func TestCanApproveOwnWork(t *testing.T) {
	s := NewAuthzService(zerolog.Nop())
	p := secretaryPrincipal(5)

	other := uint(6)
	self := uint(5)

	assert.True(t, s.CanApproveOwnWork(p, &other))
	assert.False(t, s.CanApproveOwnWork(p, &self))

	// No recorded creator, nothing to enforce against
	assert.True(t, s.CanApproveOwnWork(p, nil))

	assert.False(t, s.CanApproveOwnWork(nil, &other))
}
