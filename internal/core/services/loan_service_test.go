package services

import (
	"context"
	"errors"
	"testing"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestLoan(t *testing.T, env *loanTestEnv, creator *domain.Principal, borrower *models.Member, guarantors ...*models.Member) *models.Loan {
	t.Helper()
	input := &CreateLoanInput{
		MemberID: borrower.ID,
		Amount:   10000,
		Purpose:  "equipment",
	}
	for _, g := range guarantors {
		input.Guarantors = append(input.Guarantors, GuarantorInput{MemberID: g.ID, GuaranteedAmount: 5000})
	}
	loan, err := env.loanService.Create(principalCtx(creator), input, creator)
	require.NoError(t, err)
	return loan
}

func TestLoanCreate(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	g1 := seedMember(t, env.db, "M-002")
	g2 := seedMember(t, env.db, "M-003")
	officer := officerPrincipal(1)

	loan := createTestLoan(t, env, officer, borrower, g1, g2)

	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	require.NotNil(t, loan.CreatedBy)
	assert.Equal(t, officer.UserID, *loan.CreatedBy)

	var relations []models.Guarantor
	require.NoError(t, env.db.Where("loan_id = ?", loan.ID).Find(&relations).Error)
	require.Len(t, relations, 2)
	for _, rel := range relations {
		assert.True(t, rel.IsActive)
		assert.Nil(t, rel.GuaranteeEndDate)
	}

	entries := auditEntries(t, env.auditRepo, "LOAN_CREATE")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditStatusSuccess, e.Status)
	assert.Equal(t, "Loan", e.EntityType)
	assert.Equal(t, loan.ID, e.EntityID)
	assert.Equal(t, officer.UserID, e.ActorUserID)
	assert.Equal(t, "127.0.0.1", e.IPAddress)
}

func TestLoanCreateUnknownBorrower(t *testing.T) {
	env := newLoanTestEnv(t)
	officer := officerPrincipal(1)

	_, err := env.loanService.Create(principalCtx(officer), &CreateLoanInput{MemberID: 999, Amount: 100}, officer)
	require.ErrorIs(t, err, ErrBorrowerNotFound)

	var count int64
	env.db.Model(&models.Loan{}).Count(&count)
	assert.Zero(t, count)
}

func TestLoanCreateUnknownGuarantor(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	officer := officerPrincipal(1)

	_, err := env.loanService.Create(principalCtx(officer), &CreateLoanInput{
		MemberID:   borrower.ID,
		Amount:     100,
		Guarantors: []GuarantorInput{{MemberID: 999, GuaranteedAmount: 100}},
	}, officer)
	require.ErrorIs(t, err, ErrGuarantorMemberNotFound)
}

func TestLoanApprove(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	officer := officerPrincipal(1)
	secretary := secretaryPrincipal(2)

	loan := createTestLoan(t, env, officer, borrower)

	approved, err := env.loanService.Approve(principalCtx(secretary), loan.ID, secretary)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, secretary.UserID, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	entries := auditEntries(t, env.auditRepo, "LOAN_APPROVAL")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, models.AuditStatusSuccess, e.Status)
	assert.Equal(t, "Loan", e.EntityType)
	assert.Equal(t, loan.ID, e.EntityID)

	// Before/after snapshots carry the status transition
	require.NotNil(t, e.OldValues)
	assert.Contains(t, *e.OldValues, `"PENDING"`)
	require.NotNil(t, e.NewValues)
	assert.Contains(t, *e.NewValues, `"ACTIVE"`)
}

func TestLoanApproveSelfRefused(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")

	// Same person creates and tries to approve, with the approve
	// permission in hand
	creator := domain.NewPrincipal(2, "secretary-2", domain.RoleSecretary,
		[]string{domain.PermLoanCreate, domain.PermLoanApprove}, nil)

	loan := createTestLoan(t, env, creator, borrower)

	_, err := env.loanService.Approve(principalCtx(creator), loan.ID, creator)
	require.ErrorIs(t, err, domain.ErrSelfApproval)

	var fresh models.Loan
	require.NoError(t, env.db.First(&fresh, loan.ID).Error)
	assert.Equal(t, domain.LoanStatusPending, fresh.Status)
	assert.Nil(t, fresh.ApprovedBy)

	assert.Empty(t, auditEntries(t, env.auditRepo, "LOAN_APPROVAL"))
}

func TestLoanApproveNotPending(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	officer := officerPrincipal(1)
	secretary := secretaryPrincipal(2)

	loan := createTestLoan(t, env, officer, borrower)
	_, err := env.loanService.Approve(principalCtx(secretary), loan.ID, secretary)
	require.NoError(t, err)

	_, err = env.loanService.Approve(principalCtx(secretary), loan.ID, secretary)
	require.ErrorIs(t, err, ErrLoanNotPending)
}

func TestLoanCompleteReleasesGuarantors(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	guarantor := seedMember(t, env.db, "M-002")
	officer := officerPrincipal(1)
	secretary := secretaryPrincipal(2)
	ctx := context.Background()

	loan := createTestLoan(t, env, officer, borrower, guarantor)
	_, err := env.loanService.Approve(principalCtx(secretary), loan.ID, secretary)
	require.NoError(t, err)

	// While the loan is active the guarantor can see it
	gp := memberPrincipal(9, guarantor.ID)
	ok, err := env.guarantors.CanViewLoan(ctx, gp, loan.ID)
	require.NoError(t, err)
	require.True(t, ok)

	completed, err := env.loanService.Complete(principalCtx(secretary), loan.ID, secretary)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// Completion deactivates the relation and stamps the end date
	var relations []models.Guarantor
	require.NoError(t, env.db.Where("loan_id = ?", loan.ID).Find(&relations).Error)
	require.Len(t, relations, 1)
	assert.False(t, relations[0].IsActive)
	assert.NotNil(t, relations[0].GuaranteeEndDate)

	// And the guarantor's access ends with it
	ok, err = env.guarantors.CanViewLoan(ctx, gp, loan.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, auditEntries(t, env.auditRepo, "LOAN_COMPLETION"), 1)
}

func TestLoanCompleteLeavesOtherLoansAlone(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	guarantor := seedMember(t, env.db, "M-002")
	officer := officerPrincipal(1)
	secretary := secretaryPrincipal(2)

	first := createTestLoan(t, env, officer, borrower, guarantor)
	second := createTestLoan(t, env, officer, borrower, guarantor)

	_, err := env.loanService.Approve(principalCtx(secretary), first.ID, secretary)
	require.NoError(t, err)
	_, err = env.loanService.Complete(principalCtx(secretary), first.ID, secretary)
	require.NoError(t, err)

	// The same member still actively guarantees the second loan
	ok, err := env.guarantors.CanViewLoan(context.Background(), memberPrincipal(9, guarantor.ID), second.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoanCompleteNotActive(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	officer := officerPrincipal(1)
	secretary := secretaryPrincipal(2)

	loan := createTestLoan(t, env, officer, borrower)
	_, err := env.loanService.Complete(principalCtx(secretary), loan.ID, secretary)
	require.ErrorIs(t, err, ErrLoanNotActive)
}

func TestLoanDelete(t *testing.T) {
	env := newLoanTestEnv(t)
	borrower := seedMember(t, env.db, "M-001")
	officer := officerPrincipal(1)
	president := domain.NewPrincipal(3, "president", domain.RolePresident,
		[]string{domain.PermLoanDelete}, nil)

	loan := createTestLoan(t, env, officer, borrower)

	require.NoError(t, env.loanService.Delete(principalCtx(president), loan.ID, president))

	_, err := env.loanService.GetByID(context.Background(), loan.ID)
	require.ErrorIs(t, err, ErrLoanNotFound)

	entries := auditEntries(t, env.auditRepo, "LOAN_DELETE")
	require.Len(t, entries, 1)
	assert.Equal(t, loan.ID, entries[0].EntityID)
}

func TestFailedAuditEntrySurvivesRollback(t *testing.T) {
	env := newLoanTestEnv(t)
	ic := audit.NewInterceptor(env.auditService, zerolog.Nop(), false)
	ctx := principalCtx(secretaryPrincipal(2))

	boom := errors.New("boom")
	err := env.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := ic.Wrap(txCtx, audit.Op{Name: "loan_approval", Action: "LOAN_APPROVAL"}, func(c context.Context) (interface{}, error) {
			return nil, boom
		})
		return err
	})
	require.ErrorIs(t, err, boom)

	entries := auditEntries(t, env.auditRepo, "LOAN_APPROVAL_FAILED")
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditStatusFailed, entries[0].Status)
	require.NotNil(t, entries[0].NewValues)
	assert.Contains(t, *entries[0].NewValues, "boom")
}

func TestSuccessAuditEntryRollsBackWithOperation(t *testing.T) {
	env := newLoanTestEnv(t)
	ic := audit.NewInterceptor(env.auditService, zerolog.Nop(), false)
	ctx := principalCtx(secretaryPrincipal(2))

	abort := errors.New("abort after commit point")
	err := env.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := ic.Wrap(txCtx, audit.Op{Name: "loan_note"}, func(c context.Context) (interface{}, error) {
			return nil, nil
		})
		require.NoError(t, err)
		return abort
	})
	require.ErrorIs(t, err, abort)

	// The SUCCESS entry rode the transaction and died with it
	assert.Empty(t, auditEntries(t, env.auditRepo, "LOAN_NOTE"))
}
