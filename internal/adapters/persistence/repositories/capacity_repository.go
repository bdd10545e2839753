package repositories

import (
	"context"

	"solilend/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// capacityPolicyID is the fixed primary key of the singleton row
const capacityPolicyID = 1

// capacityRepository implements CapacityRepository interface
type capacityRepository struct {
	db *gorm.DB
}

// NewCapacityRepository creates a new capacity policy repository
func NewCapacityRepository(db *gorm.DB) CapacityRepository {
	return &capacityRepository{db: db}
}

// Get returns the singleton capacity policy
func (r *capacityRepository) Get(ctx context.Context) (*models.CapacityPolicy, error) {
	var policy models.CapacityPolicy
	if err := r.db.WithContext(ctx).First(&policy, capacityPolicyID).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

// Update rewrites the policy parameters. The row ID is pinned so there is
// always exactly one policy.
func (r *capacityRepository) Update(ctx context.Context, policy *models.CapacityPolicy) error {
	policy.ID = capacityPolicyID
	return r.db.WithContext(ctx).Save(policy).Error
}
