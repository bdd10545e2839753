package services

import (
	"context"
	"log"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
)

// CapacityService exposes the singleton capacity policy with its live usage.
// Usage is always recomputed from the active member count; the stored row
// only carries the configured parameters.
type CapacityService struct {
	capacityRepo repositories.CapacityRepository
	memberRepo   repositories.MemberRepository
}

// NewCapacityService creates a new capacity service
func NewCapacityService(capacityRepo repositories.CapacityRepository, memberRepo repositories.MemberRepository) *CapacityService {
	return &CapacityService{capacityRepo: capacityRepo, memberRepo: memberRepo}
}

// Status returns the policy plus recomputed usage
func (s *CapacityService) Status(ctx context.Context) (*models.CapacityStatus, error) {
	policy, err := s.capacityRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.memberRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	available := policy.TotalCapacity - int(active)
	if available < 0 {
		available = 0
	}

	return &models.CapacityStatus{
		TotalCapacity:        policy.TotalCapacity,
		CurrentUsage:         int(active),
		AvailableSlots:       available,
		AutoIncrease:         policy.AutoIncrease,
		IncreaseThresholdPct: policy.IncreaseThresholdPct,
		IncreaseAmount:       policy.IncreaseAmount,
	}, nil
}

// UpdateInput represents a policy change request
type UpdateInput struct {
	TotalCapacity        int  `json:"total_capacity"`
	AutoIncrease         bool `json:"auto_increase"`
	IncreaseThresholdPct int  `json:"increase_threshold_pct"`
	IncreaseAmount       int  `json:"increase_amount"`
}

// Update rewrites the policy parameters
func (s *CapacityService) Update(ctx context.Context, input *UpdateInput, adminID uint) (*models.CapacityStatus, error) {
	policy, err := s.capacityRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	policy.TotalCapacity = input.TotalCapacity
	policy.AutoIncrease = input.AutoIncrease
	policy.IncreaseThresholdPct = input.IncreaseThresholdPct
	policy.IncreaseAmount = input.IncreaseAmount
	policy.UpdatedBy = &adminID

	if err := s.capacityRepo.Update(ctx, policy); err != nil {
		return nil, err
	}

	log.Printf("✅ Capacity policy updated by admin %d (capacity: %d)", adminID, policy.TotalCapacity)
	return s.Status(ctx)
}
