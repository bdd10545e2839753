package repositories

import (
	"context"

	"solilend/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// waitlistRepository implements WaitlistRepository interface
type waitlistRepository struct {
	db *gorm.DB
}

// NewWaitlistRepository creates a new waiting list repository
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

// nextTierPosition returns MAX(position)+1 over every entry ever created in
// the tier, soft-deleted included, so a retired position is never reissued.
// The read runs under a row lock so concurrent enqueues in the same tier
// never duplicate a position. Must run inside a transaction.
func nextTierPosition(tx *gorm.DB, priority int) (int, error) {
	var maxPos struct{ Max int }
	err := tx.Unscoped().Model(&models.WaitingListEntry{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("COALESCE(MAX(position), 0) AS max").
		Where("priority = ?", priority).
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	return maxPos.Max + 1, nil
}

// GetByID gets an entry by ID
func (r *waitlistRepository) GetByID(ctx context.Context, id uint) (*models.WaitingListEntry, error) {
	var entry models.WaitingListEntry
	err := r.db.WithContext(ctx).Preload("Member").First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns all entries, priority tier 1 first, then by position
func (r *waitlistRepository) List(ctx context.Context) ([]*models.WaitingListEntry, error) {
	var entries []*models.WaitingListEntry
	err := r.db.WithContext(ctx).
		Preload("Member").
		Order("priority ASC, position ASC").
		Find(&entries).Error
	return entries, err
}

// Delete soft-deletes an entry. The row stays behind so its position is
// never reissued.
func (r *waitlistRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.WaitingListEntry{}, id).Error
}
