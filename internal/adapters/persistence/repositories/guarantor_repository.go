package repositories

import (
	"context"
	"time"

	"coop-backoffice/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// GuarantorRepository handles guarantor relation data access.
// Relations are historical records: they are created when a loan lists
// a guarantor and deactivated (never deleted) when the loan completes.
type GuarantorRepository struct {
	db *gorm.DB
}

// NewGuarantorRepository creates a new guarantor repository
func NewGuarantorRepository(db *gorm.DB) *GuarantorRepository {
	return &GuarantorRepository{db: db}
}

// Create creates a new guarantor relation
func (r *GuarantorRepository) Create(ctx context.Context, g *models.Guarantor) error {
	return dbFrom(ctx, r.db).Create(g).Error
}

// ActiveExists reports whether the member currently holds an active
// guarantee on the loan.
func (r *GuarantorRepository) ActiveExists(ctx context.Context, loanID, memberID uint) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&models.Guarantor{}).
		Where("loan_id = ? AND member_id = ? AND is_active = ?", loanID, memberID, true).
		Count(&count).Error
	return count > 0, err
}

// ListActiveByMember lists the member's active guarantees with loans
func (r *GuarantorRepository) ListActiveByMember(ctx context.Context, memberID uint) ([]*models.Guarantor, error) {
	var guarantors []*models.Guarantor
	err := dbFrom(ctx, r.db).
		Preload("Loan").
		Where("member_id = ? AND is_active = ?", memberID, true).
		Order("guarantee_start_date DESC").
		Find(&guarantors).Error
	return guarantors, err
}

// ListByLoan lists all relations for a loan, active or not
func (r *GuarantorRepository) ListByLoan(ctx context.Context, loanID uint) ([]*models.Guarantor, error) {
	var guarantors []*models.Guarantor
	err := dbFrom(ctx, r.db).
		Preload("Member").
		Where("loan_id = ?", loanID).
		Order("created_at").
		Find(&guarantors).Error
	return guarantors, err
}

// DeactivateByLoan flips every active relation of the loan in one
// statement: is_active off, end date stamped. Relations of other loans
// held by the same members are untouched.
func (r *GuarantorRepository) DeactivateByLoan(ctx context.Context, loanID uint, endDate time.Time) error {
	return dbFrom(ctx, r.db).Model(&models.Guarantor{}).
		Where("loan_id = ? AND is_active = ?", loanID, true).
		Updates(map[string]interface{}{
			"is_active":          false,
			"guarantee_end_date": endDate,
		}).Error
}
