package services

import (
	"context"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
)

// GuarantorAccessService grants loan visibility through active
// guarantees only. The relation is time-bounded: the completion cascade
// deactivates it in the same unit of work that completes the loan, so a
// guarantor loses access the instant the loan is done.
type GuarantorAccessService struct {
	guarantorRepo *repositories.GuarantorRepository
}

// NewGuarantorAccessService creates a new guarantor access evaluator
func NewGuarantorAccessService(guarantorRepo *repositories.GuarantorRepository) *GuarantorAccessService {
	return &GuarantorAccessService{guarantorRepo: guarantorRepo}
}

// CanViewLoan reports whether the principal holds an active guarantee
// on the loan. Principals without a linked member never qualify; loan
// status is irrelevant, only the relation's active flag counts.
func (s *GuarantorAccessService) CanViewLoan(ctx context.Context, p *domain.Principal, loanID uint) (bool, error) {
	if p == nil || p.MemberID == nil {
		return false, nil
	}
	return s.guarantorRepo.ActiveExists(ctx, loanID, *p.MemberID)
}

// GetGuaranteedLoans returns the loans the member currently guarantees.
// Completed loans drop out because their relations are deactivated.
func (s *GuarantorAccessService) GetGuaranteedLoans(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	relations, err := s.guarantorRepo.ListActiveByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	loans := make([]*models.Loan, 0, len(relations))
	for _, rel := range relations {
		if rel.Loan != nil {
			loans = append(loans, rel.Loan)
		}
	}
	return loans, nil
}
