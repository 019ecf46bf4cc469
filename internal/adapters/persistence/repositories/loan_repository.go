package repositories

import (
	"context"

	"coop-backoffice/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// LoanRepository handles loan data access
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create creates a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return dbFrom(ctx, r.db).Create(loan).Error
}

// GetByID gets a loan by ID with relations
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := dbFrom(ctx, r.db).
		Preload("Member").
		Preload("Guarantors").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByMemberID gets loans borrowed by a member
func (r *LoanRepository) GetByMemberID(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := dbFrom(ctx, r.db).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// List lists all loans with pagination
func (r *LoanRepository) List(ctx context.Context, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	dbFrom(ctx, r.db).Model(&models.Loan{}).Count(&total)

	err := dbFrom(ctx, r.db).
		Preload("Member").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// Update updates a loan
func (r *LoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return dbFrom(ctx, r.db).Save(loan).Error
}

// Delete soft deletes a loan
func (r *LoanRepository) Delete(ctx context.Context, id uint) error {
	return dbFrom(ctx, r.db).Delete(&models.Loan{}, id).Error
}
