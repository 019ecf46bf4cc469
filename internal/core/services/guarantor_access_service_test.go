package services

import (
	"context"
	"testing"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanViewLoanThroughActiveGuarantee(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewGuarantorRepository(db)
	s := NewGuarantorAccessService(repo)
	ctx := context.Background()

	borrower := seedMember(t, db, "M-001")
	guarantor := seedMember(t, db, "M-002")

	loan := &models.Loan{MemberID: borrower.ID, Amount: 5000, Status: domain.LoanStatusActive}
	require.NoError(t, db.Create(loan).Error)
	require.NoError(t, db.Create(&models.Guarantor{
		LoanID:             loan.ID,
		MemberID:           guarantor.ID,
		GuaranteedAmount:   5000,
		IsActive:           true,
		GuaranteeStartDate: time.Now(),
	}).Error)

	p := memberPrincipal(10, guarantor.ID)
	ok, err := s.CanViewLoan(ctx, p, loan.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// A different member has no way in
	stranger := memberPrincipal(11, guarantor.ID+100)
	ok, err = s.CanViewLoan(ctx, stranger, loan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Accounts without a linked member never qualify
	ok, err = s.CanViewLoan(ctx, officerPrincipal(12), loan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CanViewLoan(ctx, nil, loan.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeactivatedGuaranteeDeniesView(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewGuarantorRepository(db)
	s := NewGuarantorAccessService(repo)
	ctx := context.Background()

	borrower := seedMember(t, db, "M-001")
	guarantor := seedMember(t, db, "M-002")

	loan := &models.Loan{MemberID: borrower.ID, Amount: 5000, Status: domain.LoanStatusActive}
	require.NoError(t, db.Create(loan).Error)
	require.NoError(t, db.Create(&models.Guarantor{
		LoanID:             loan.ID,
		MemberID:           guarantor.ID,
		GuaranteedAmount:   5000,
		IsActive:           true,
		GuaranteeStartDate: time.Now(),
	}).Error)

	require.NoError(t, repo.DeactivateByLoan(ctx, loan.ID, time.Now()))

	p := memberPrincipal(10, guarantor.ID)
	ok, err := s.CanViewLoan(ctx, p, loan.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetGuaranteedLoansOnlyActive(t *testing.T) {
	db := setupTestDB(t)
	repo := repositories.NewGuarantorRepository(db)
	s := NewGuarantorAccessService(repo)
	ctx := context.Background()

	borrower := seedMember(t, db, "M-001")
	guarantor := seedMember(t, db, "M-002")

	active := &models.Loan{MemberID: borrower.ID, Amount: 1000, Status: domain.LoanStatusActive}
	done := &models.Loan{MemberID: borrower.ID, Amount: 2000, Status: domain.LoanStatusCompleted}
	require.NoError(t, db.Create(active).Error)
	require.NoError(t, db.Create(done).Error)

	start := time.Now()
	require.NoError(t, db.Create(&models.Guarantor{
		LoanID: active.ID, MemberID: guarantor.ID, GuaranteedAmount: 1000,
		IsActive: true, GuaranteeStartDate: start,
	}).Error)
	end := time.Now()
	require.NoError(t, db.Create(&models.Guarantor{
		LoanID: done.ID, MemberID: guarantor.ID, GuaranteedAmount: 2000,
		IsActive: false, GuaranteeStartDate: start, GuaranteeEndDate: &end,
	}).Error)

	loans, err := s.GetGuaranteedLoans(ctx, guarantor.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, active.ID, loans[0].ID)
}
