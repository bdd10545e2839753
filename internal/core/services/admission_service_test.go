package services

import (
	"context"
	"testing"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// admitAs mimics the transactional admission write: the repository stamps
// the decided status (and activation date) onto the member it was handed.
func admitAs(status domain.MemberStatus) func(mock.Arguments) {
	return func(args mock.Arguments) {
		member := args.Get(1).(*models.Member)
		member.ID = 7
		member.Status = status
		if status == domain.MemberActive {
			now := time.Now()
			member.ActivatedAt = &now
		}
	}
}

func TestAdmissionService_Admit(t *testing.T) {
	ctx := context.Background()

	input := &AdmitInput{
		Email:          "paul@example.com",
		HashedPassword: "$2a$12$hashed",
		FirstName:      "Paul",
		LastName:       "Martin",
		Phone:          "0622222222",
		BirthDate:      birthDate(1995, 6, 1),
	}

	t.Run("Free Slot Admits Active", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		waitlistRepo := new(MockWaitlistRepo)
		capacityRepo := new(MockCapacityRepo)
		svc := NewAdmissionService(memberRepo, waitlistRepo, capacityRepo, NewLogNotifier())

		memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityStandard).
			Run(admitAs(domain.MemberActive)).Return(0, nil)
		capacityRepo.On("Get", ctx).Return(&models.CapacityPolicy{ID: 1, TotalCapacity: 100}, nil)

		member, err := svc.Admit(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, domain.MemberActive, member.Status)
		assert.NotNil(t, member.ActivatedAt)
		assert.Empty(t, waitlistRepo.Calls)
	})

	t.Run("Full Capacity Queues Tier 2", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		waitlistRepo := new(MockWaitlistRepo)
		svc := NewAdmissionService(memberRepo, waitlistRepo, new(MockCapacityRepo), NewLogNotifier())

		memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityStandard).
			Run(admitAs(domain.MemberPending)).Return(4, nil)

		member, err := svc.Admit(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, domain.MemberPending, member.Status)
		assert.Nil(t, member.ActivatedAt)
	})

	t.Run("Referral Queues Tier 1", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		waitlistRepo := new(MockWaitlistRepo)
		svc := NewAdmissionService(memberRepo, waitlistRepo, new(MockCapacityRepo), NewLogNotifier())

		referrer := &models.Member{ID: 3}
		memberRepo.On("GetByReferralCode", ctx, "MARIE042").Return(referrer, nil)
		memberRepo.On("CountFilleuls", ctx, uint(3)).Return(int64(1), nil)
		memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityReferral).
			Run(admitAs(domain.MemberPending)).Return(1, nil)

		code := "MARIE042"
		referred := *input
		referred.ReferralCode = &code

		member, err := svc.Admit(ctx, &referred)
		assert.NoError(t, err)
		assert.Equal(t, domain.MemberPending, member.Status)
		assert.NotNil(t, member.ReferrerID)
		assert.Equal(t, uint(3), *member.ReferrerID)
	})

	t.Run("Decision Create And Enqueue Are One Write", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		waitlistRepo := new(MockWaitlistRepo)
		svc := NewAdmissionService(memberRepo, waitlistRepo, new(MockCapacityRepo), NewLogNotifier())

		memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityStandard).
			Run(admitAs(domain.MemberPending)).Return(1, nil)

		_, err := svc.Admit(ctx, input)
		assert.NoError(t, err)
		memberRepo.AssertNumberOfCalls(t, "CreateWithAdmission", 1)
		memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, waitlistRepo.Calls)
	})

	t.Run("Unknown Referral Code Fails Fast", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewAdmissionService(memberRepo, new(MockWaitlistRepo), new(MockCapacityRepo), NewLogNotifier())

		memberRepo.On("GetByReferralCode", ctx, "NOPE000").Return(nil, assert.AnError)

		code := "NOPE000"
		bad := *input
		bad.ReferralCode = &code

		_, err := svc.Admit(ctx, &bad)
		assert.Error(t, err)
		memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAdmissionService_ValidateReferral(t *testing.T) {
	ctx := context.Background()

	t.Run("Referrer At Cap", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewAdmissionService(memberRepo, new(MockWaitlistRepo), new(MockCapacityRepo), NewLogNotifier())

		memberRepo.On("GetByReferralCode", ctx, "MARIE042").Return(&models.Member{ID: 3}, nil)
		memberRepo.On("CountFilleuls", ctx, uint(3)).Return(int64(domain.MaxFilleuls), nil)

		_, err := svc.ValidateReferral(ctx, "MARIE042")
		assert.ErrorIs(t, err, ErrReferrerAtCap)
	})

	t.Run("Under Cap", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewAdmissionService(memberRepo, new(MockWaitlistRepo), new(MockCapacityRepo), NewLogNotifier())

		memberRepo.On("GetByReferralCode", ctx, "MARIE042").Return(&models.Member{ID: 3}, nil)
		memberRepo.On("CountFilleuls", ctx, uint(3)).Return(int64(domain.MaxFilleuls-1), nil)

		referrer, err := svc.ValidateReferral(ctx, "MARIE042")
		assert.NoError(t, err)
		assert.Equal(t, uint(3), referrer.ID)
	})
}

func TestAdmissionService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("Activates And Dequeues", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		waitlistRepo := new(MockWaitlistRepo)
		svc := NewAdmissionService(memberRepo, waitlistRepo, new(MockCapacityRepo), NewLogNotifier())

		entry := &models.WaitingListEntry{ID: 8, MemberID: 21}
		activated := &models.Member{ID: 21, Status: domain.MemberActive}

		waitlistRepo.On("GetByID", ctx, uint(8)).Return(entry, nil)
		memberRepo.On("UpdateStatus", ctx, uint(21), domain.MemberActive, mock.AnythingOfType("*time.Time")).Return(nil)
		waitlistRepo.On("Delete", ctx, uint(8)).Return(nil)
		memberRepo.On("GetByID", ctx, uint(21)).Return(activated, nil)

		member, err := svc.Activate(ctx, 8)
		assert.NoError(t, err)
		assert.Equal(t, uint(21), member.ID)
		waitlistRepo.AssertCalled(t, "Delete", ctx, uint(8))
	})
}

func TestCapacityService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("Recomputes Usage", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		capacityRepo := new(MockCapacityRepo)
		svc := NewCapacityService(capacityRepo, memberRepo)

		capacityRepo.On("Get", ctx).Return(&models.CapacityPolicy{ID: 1, TotalCapacity: 100}, nil)
		memberRepo.On("CountActive", ctx).Return(int64(73), nil)

		status, err := svc.Status(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 73, status.CurrentUsage)
		assert.Equal(t, 27, status.AvailableSlots)
	})

	t.Run("Available Slots Never Negative", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		capacityRepo := new(MockCapacityRepo)
		svc := NewCapacityService(capacityRepo, memberRepo)

		capacityRepo.On("Get", ctx).Return(&models.CapacityPolicy{ID: 1, TotalCapacity: 50}, nil)
		memberRepo.On("CountActive", ctx).Return(int64(55), nil)

		status, err := svc.Status(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, status.AvailableSlots)
	})
}

func TestAdmissionService_AutoIncrease(t *testing.T) {
	ctx := context.Background()

	memberRepo := new(MockMemberRepo)
	waitlistRepo := new(MockWaitlistRepo)
	capacityRepo := new(MockCapacityRepo)
	svc := NewAdmissionService(memberRepo, waitlistRepo, capacityRepo, NewLogNotifier())

	policy := &models.CapacityPolicy{
		ID:                   1,
		TotalCapacity:        100,
		AutoIncrease:         true,
		IncreaseThresholdPct: 90,
		IncreaseAmount:       50,
	}
	memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityStandard).
		Run(admitAs(domain.MemberActive)).Return(0, nil)
	capacityRepo.On("Get", ctx).Return(policy, nil)
	// 95 of 100 after admission: over the 90% threshold
	memberRepo.On("CountActive", ctx).Return(int64(95), nil)
	capacityRepo.On("Update", ctx, mock.MatchedBy(func(p *models.CapacityPolicy) bool {
		return p.TotalCapacity == 150
	})).Return(nil)

	_, err := svc.Admit(ctx, &AdmitInput{
		Email:     "nina@example.com",
		FirstName: "Nina",
		LastName:  "Leroy",
		BirthDate: birthDate(1992, 9, 9),
	})
	assert.NoError(t, err)
	capacityRepo.AssertCalled(t, "Update", ctx, mock.Anything)
}

func TestAdmissionService_AdmitPendingSkipsAutoIncrease(t *testing.T) {
	// Auto-increase only runs when an admission actually consumed a slot
	ctx := context.Background()

	memberRepo := new(MockMemberRepo)
	waitlistRepo := new(MockWaitlistRepo)
	capacityRepo := new(MockCapacityRepo)
	svc := NewAdmissionService(memberRepo, waitlistRepo, capacityRepo, NewLogNotifier())

	memberRepo.On("CreateWithAdmission", ctx, mock.AnythingOfType("*models.Member"), domain.PriorityStandard).
		Run(admitAs(domain.MemberPending)).Return(1, nil)

	member, err := svc.Admit(ctx, &AdmitInput{
		Email:     "last@example.com",
		FirstName: "Luc",
		LastName:  "Petit",
		BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.MemberPending, member.Status)
	capacityRepo.AssertNotCalled(t, "Get", mock.Anything)
}
