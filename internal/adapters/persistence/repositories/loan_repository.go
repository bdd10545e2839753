package repositories

import (
	"context"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan application
func (r *loanRepository) Create(ctx context.Context, loan *models.LoanApplication) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan with its installments and borrower
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.LoanApplication, error) {
	var loan models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Member").
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// List lists loans with pagination, optionally filtered by status
func (r *loanRepository) List(ctx context.Context, status *domain.LoanStatus, offset, limit int) ([]*models.LoanApplication, int64, error) {
	var loans []*models.LoanApplication
	var total int64

	q := r.db.WithContext(ctx).Model(&models.LoanApplication{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("Member").Order("created_at DESC").Offset(offset).Limit(limit).Find(&loans).Error; err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

// ListByMember lists a borrower's loans, newest first
func (r *loanRepository) ListByMember(ctx context.Context, memberID uint) ([]*models.LoanApplication, error) {
	var loans []*models.LoanApplication
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// TransitionStatus performs a compare-and-set on the loan status. Two
// concurrent transitions from the same state yield one success and one
// RowsAffected=0, which the caller maps to an invalid-state error.
func (r *loanRepository) TransitionStatus(ctx context.Context, loanID uint, from, to domain.LoanStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.LoanApplication{}).
		Where("id = ? AND status = ?", loanID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApproveWithSchedule commits the PENDING->APPROVED flip and the generated
// installments in one transaction: either both land or neither does.
func (r *loanRepository) ApproveWithSchedule(ctx context.Context, loanID uint, updates map[string]interface{}, installments []*models.Installment) (bool, error) {
	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if updates == nil {
			updates = map[string]interface{}{}
		}
		updates["status"] = domain.LoanApproved
		res := tx.Model(&models.LoanApplication{}).
			Where("id = ? AND status = ?", loanID, domain.LoanPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // lost the race, nothing to roll back
		}
		won = true
		for _, inst := range installments {
			inst.LoanID = loanID
			if err := tx.Create(inst).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// GetInstallment gets one installment of a loan by sequence number
func (r *loanRepository) GetInstallment(ctx context.Context, loanID uint, number int) (*models.Installment, error) {
	var inst models.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND number = ?", loanID, number).
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// TransitionInstallment performs a compare-and-set against any of the
// permitted source statuses.
func (r *loanRepository) TransitionInstallment(ctx context.Context, installmentID uint, from []domain.InstallmentStatus, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Installment{}).
		Where("id = ? AND status IN ?", installmentID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountUnpaid counts installments of a loan not yet confirmed paid
func (r *loanRepository) CountUnpaid(ctx context.Context, loanID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Installment{}).
		Where("loan_id = ? AND status <> ?", loanID, domain.InstallmentPaid).
		Count(&count).Error
	return count, err
}

// Settle commits the full repayment cascade in one transaction: the
// DISBURSED->REPAID flip (compare-and-set, so the cascade runs exactly once),
// the borrower's repaid counter and trust score, and the first-time referral
// code when one is passed. Returns false when the CAS lost.
func (r *loanRepository) Settle(ctx context.Context, loanID, memberID uint, completedAt time.Time, referralCode *string) (bool, error) {
	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LoanApplication{}).
			Where("id = ? AND status = ?", loanID, domain.LoanDisbursed).
			Updates(map[string]interface{}{
				"status":       domain.LoanRepaid,
				"completed_at": completedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		if err := tx.Model(&models.Member{}).
			Where("id = ?", memberID).
			Updates(map[string]interface{}{
				"loans_repaid": gorm.Expr("loans_repaid + 1"),
				"score":        gorm.Expr("score + 1"),
			}).Error; err != nil {
			return err
		}

		if referralCode != nil {
			// Only the first fully repaid loan issues a code, and only if
			// none exists yet.
			if err := tx.Model(&models.Member{}).
				Where("id = ? AND referral_code IS NULL", memberID).
				Update("referral_code", *referralCode).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

// ListOverdueInstallments returns unpaid installments whose due date has
// elapsed, with the owning loan preloaded for escalation. Installments with
// a proof awaiting confirmation are included so their lateness stays visible,
// though the sweep never escalates them.
func (r *loanRepository) ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*models.Installment, error) {
	var insts []*models.Installment
	err := r.db.WithContext(ctx).
		Preload("Loan").
		Where("status IN ? AND due_date < ?",
			[]domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentLate, domain.InstallmentConfirmation},
			asOf.Format("2006-01-02")).
		Find(&insts).Error
	return insts, err
}
