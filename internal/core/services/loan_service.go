package services

import (
	"context"
	"errors"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"
	"coop-backoffice/internal/adapters/persistence/repositories"
	"coop-backoffice/internal/core/domain"
	"coop-backoffice/internal/pkg/audit"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Loan service errors
var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrLoanNotPending          = errors.New("loan is not pending approval")
	ErrLoanNotActive           = errors.New("loan is not active")
	ErrBorrowerNotFound        = errors.New("borrowing member not found")
	ErrGuarantorMemberNotFound = errors.New("guarantor member not found")
)

// LoanService handles loan lifecycle operations. Every state change
// runs inside one transaction together with its SUCCESS audit entry
// and, for completion, the guarantor deactivation cascade.
type LoanService struct {
	db            *gorm.DB
	loanRepo      *repositories.LoanRepository
	guarantorRepo *repositories.GuarantorRepository
	memberRepo    repositories.MemberRepository
	authz         *AuthzService
	interceptor   *audit.Interceptor
	logger        zerolog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(
	db *gorm.DB,
	loanRepo *repositories.LoanRepository,
	guarantorRepo *repositories.GuarantorRepository,
	memberRepo repositories.MemberRepository,
	authz *AuthzService,
	interceptor *audit.Interceptor,
	logger zerolog.Logger,
) *LoanService {
	return &LoanService{
		db:            db,
		loanRepo:      loanRepo,
		guarantorRepo: guarantorRepo,
		memberRepo:    memberRepo,
		authz:         authz,
		interceptor:   interceptor,
		logger:        logger,
	}
}

// GuarantorInput represents one guarantor on a loan application
type GuarantorInput struct {
	MemberID         uint    `json:"member_id" validate:"required"`
	GuaranteedAmount float64 `json:"guaranteed_amount" validate:"required,gt=0"`
}

// CreateLoanInput represents create loan input
type CreateLoanInput struct {
	MemberID     uint             `json:"member_id" validate:"required"`
	Amount       float64          `json:"amount" validate:"required,gt=0"`
	InterestRate float64          `json:"interest_rate"`
	Purpose      string           `json:"purpose,omitempty"`
	Guarantors   []GuarantorInput `json:"guarantors,omitempty"`
}

// Create creates a new loan application with its guarantor relations
func (s *LoanService) Create(ctx context.Context, input *CreateLoanInput, p *domain.Principal) (*models.Loan, error) {
	if exists, err := s.memberRepo.Exists(ctx, input.MemberID); err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrBorrowerNotFound
	}
	for _, g := range input.Guarantors {
		if exists, err := s.memberRepo.Exists(ctx, g.MemberID); err != nil {
			return nil, err
		} else if !exists {
			return nil, ErrGuarantorMemberNotFound
		}
	}

	var created *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:       "loan_create",
			EntityType: "Loan",
			Args:       []interface{}{input.MemberID, input.Amount},
		}, func(c context.Context) (interface{}, error) {
			loan := &models.Loan{
				MemberID:     input.MemberID,
				Amount:       input.Amount,
				InterestRate: input.InterestRate,
				Purpose:      input.Purpose,
				Status:       domain.LoanStatusPending,
				CreatedBy:    &p.UserID,
			}
			if err := s.loanRepo.Create(c, loan); err != nil {
				return nil, err
			}

			start := time.Now()
			for _, g := range input.Guarantors {
				rel := &models.Guarantor{
					LoanID:             loan.ID,
					MemberID:           g.MemberID,
					GuaranteedAmount:   g.GuaranteedAmount,
					IsActive:           true,
					GuaranteeStartDate: start,
				}
				if err := s.guarantorRepo.Create(c, rel); err != nil {
					return nil, err
				}
			}

			created = loan
			return loan, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Approve moves a pending loan to ACTIVE. Holding the approve
// permission is not enough: the creator of the application is refused
// by the separation-of-duties check, surfaced as an authorization
// failure.
func (s *LoanService) Approve(ctx context.Context, loanID uint, p *domain.Principal) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if loan.Status != domain.LoanStatusPending {
		return nil, ErrLoanNotPending
	}
	if !s.authz.CanApproveOwnWork(p, loan.CreatedBy) {
		return nil, domain.ErrSelfApproval
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "loan_approval",
			Action: "LOAN_APPROVAL",
			Args:   []interface{}{loan},
		}, func(c context.Context) (interface{}, error) {
			now := time.Now()
			loan.Status = domain.LoanStatusActive
			loan.ApprovedBy = &p.UserID
			loan.ApprovedAt = &now
			if err := s.loanRepo.Update(c, loan); err != nil {
				return nil, err
			}
			return loan, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Complete moves an active loan to COMPLETED and deactivates every
// active guarantor relation of that loan in the same transaction, so a
// guarantor's visibility ends the instant the completion commits.
func (s *LoanService) Complete(ctx context.Context, loanID uint, p *domain.Principal) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, ErrLoanNotActive
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name:   "loan_completion",
			Action: "LOAN_COMPLETION",
			Args:   []interface{}{loan},
		}, func(c context.Context) (interface{}, error) {
			now := time.Now()
			loan.Status = domain.LoanStatusCompleted
			loan.CompletedAt = &now
			if err := s.loanRepo.Update(c, loan); err != nil {
				return nil, err
			}
			if err := s.guarantorRepo.DeactivateByLoan(c, loan.ID, now); err != nil {
				return nil, err
			}
			return loan, nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Delete soft deletes a loan
func (s *LoanService) Delete(ctx context.Context, loanID uint, p *domain.Principal) error {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := repositories.WithTx(ctx, tx)
		_, err := s.interceptor.Wrap(txCtx, audit.Op{
			Name: "loan_delete",
			Args: []interface{}{loan},
		}, func(c context.Context) (interface{}, error) {
			return nil, s.loanRepo.Delete(c, loan.ID)
		})
		return err
	})
}

// GetByID gets a loan by ID
func (s *LoanService) GetByID(ctx context.Context, loanID uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetByMemberID gets loans borrowed by a member
func (s *LoanService) GetByMemberID(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	return s.loanRepo.GetByMemberID(ctx, memberID)
}

// List lists loans with pagination
func (s *LoanService) List(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error) {
	return s.loanRepo.List(ctx, offset, limit)
}
