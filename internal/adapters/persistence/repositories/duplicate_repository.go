package repositories

import (
	"context"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// duplicateRepository implements DuplicateRepository interface
type duplicateRepository struct {
	db *gorm.DB
}

// NewDuplicateRepository creates a new duplicate repository
func NewDuplicateRepository(db *gorm.DB) DuplicateRepository {
	return &duplicateRepository{db: db}
}

// Create persists a parked registration
func (r *duplicateRepository) Create(ctx context.Context, dup *models.PotentialDuplicate) error {
	return r.db.WithContext(ctx).Create(dup).Error
}

// GetByID gets a parked registration by ID
func (r *duplicateRepository) GetByID(ctx context.Context, id uint) (*models.PotentialDuplicate, error) {
	var dup models.PotentialDuplicate
	err := r.db.WithContext(ctx).Preload("MatchedMember").First(&dup, id).Error
	if err != nil {
		return nil, err
	}
	return &dup, nil
}

// ListPending lists unresolved parked registrations, oldest first
func (r *duplicateRepository) ListPending(ctx context.Context, offset, limit int) ([]*models.PotentialDuplicate, int64, error) {
	var dups []*models.PotentialDuplicate
	var total int64

	q := r.db.WithContext(ctx).Model(&models.PotentialDuplicate{}).Where("status = ?", domain.DuplicatePending)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Preload("MatchedMember").Order("created_at ASC").Offset(offset).Limit(limit).Find(&dups).Error; err != nil {
		return nil, 0, err
	}
	return dups, total, nil
}

// MarkResolved flips status pending -> approved/rejected with a compare-and-set
// so two staff resolving the same record concurrently yield exactly one success.
func (r *duplicateRepository) MarkResolved(ctx context.Context, id uint, status domain.DuplicateStatus, resolvedBy uint) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.PotentialDuplicate{}).
		Where("id = ? AND status = ?", id, domain.DuplicatePending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Reopen reverts a resolution whose follow-up member creation failed
func (r *duplicateRepository) Reopen(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.PotentialDuplicate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      domain.DuplicatePending,
			"resolved_by": nil,
			"resolved_at": nil,
		}).Error
}
