package services

import (
	"context"
	"errors"
	"log"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// Admission errors
var (
	ErrReferralCodeUnknown  = errors.New("referral code does not match any member")
	ErrReferrerAtCap        = errors.New("referrer has already sponsored the maximum number of members")
	ErrWaitingEntryNotFound = errors.New("waiting list entry not found")
)

// AdmissionService decides a cleared registrant's initial status against the
// capacity policy and manages the waiting list.
type AdmissionService struct {
	memberRepo   repositories.MemberRepository
	waitlistRepo repositories.WaitlistRepository
	capacityRepo repositories.CapacityRepository
	notifier     Notifier
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(
	memberRepo repositories.MemberRepository,
	waitlistRepo repositories.WaitlistRepository,
	capacityRepo repositories.CapacityRepository,
	notifier Notifier,
) *AdmissionService {
	return &AdmissionService{
		memberRepo:   memberRepo,
		waitlistRepo: waitlistRepo,
		capacityRepo: capacityRepo,
		notifier:     notifier,
	}
}

// AdmitInput is a registration cleared by the duplicate sentinel. The
// password arrives hashed.
type AdmitInput struct {
	Email          string
	HashedPassword string
	FirstName      string
	LastName       string
	Phone          string // normalized
	NationalID     string
	BirthDate      time.Time
	ReferralCode   *string
}

// ValidateReferral resolves a referral code to its owner and checks the
// filleul cap. Called before any record is written so a bad code fails the
// registration fast, with no partial state.
func (s *AdmissionService) ValidateReferral(ctx context.Context, code string) (*models.Member, error) {
	referrer, err := s.memberRepo.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReferralCodeUnknown
		}
		return nil, err
	}

	count, err := s.memberRepo.CountFilleuls(ctx, referrer.ID)
	if err != nil {
		return nil, err
	}
	if count >= domain.MaxFilleuls {
		return nil, ErrReferrerAtCap
	}
	return referrer, nil
}

// Admit creates the member with the initial status the capacity policy
// allows: ACTIVE when a slot is free, otherwise PENDING plus a waiting list
// entry (tier 1 with a valid referral, tier 2 without).
func (s *AdmissionService) Admit(ctx context.Context, input *AdmitInput) (*models.Member, error) {
	var referrer *models.Member
	if input.ReferralCode != nil && *input.ReferralCode != "" {
		var err error
		referrer, err = s.ValidateReferral(ctx, *input.ReferralCode)
		if err != nil {
			return nil, err
		}
	}

	priority := domain.PriorityStandard
	if referrer != nil {
		priority = domain.PriorityReferral
	}

	member := &models.Member{
		Email:      input.Email,
		Password:   input.HashedPassword,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Phone:      input.Phone,
		NationalID: input.NationalID,
		BirthDate:  input.BirthDate,
		Role:       domain.RoleClient,
	}
	if referrer != nil {
		member.ReferrerID = &referrer.ID
	}

	// One transaction: capacity decision, member creation, and (when the
	// member parks PENDING) the waiting list entry commit together.
	waitingPosition, err := s.memberRepo.CreateWithAdmission(ctx, member, priority)
	if err != nil {
		return nil, err
	}

	if member.Status == domain.MemberPending {
		log.Printf("⏳ Member %d queued (tier %d, position %d)", member.ID, priority, waitingPosition)
	} else {
		log.Printf("✅ Member %d admitted ACTIVE", member.ID)
		s.maybeAutoIncrease(ctx)
	}

	s.notifier.AdmissionDecided(member, waitingPosition)
	return member, nil
}

// maybeAutoIncrease raises the capacity by the configured amount once usage
// crosses the threshold percentage. Best-effort: a failure here never fails
// the admission that triggered it.
func (s *AdmissionService) maybeAutoIncrease(ctx context.Context) {
	policy, err := s.capacityRepo.Get(ctx)
	if err != nil || !policy.AutoIncrease || policy.TotalCapacity == 0 {
		return
	}

	active, err := s.memberRepo.CountActive(ctx)
	if err != nil {
		return
	}

	usagePct := int(active * 100 / int64(policy.TotalCapacity))
	if usagePct < policy.IncreaseThresholdPct {
		return
	}

	policy.TotalCapacity += policy.IncreaseAmount
	if err := s.capacityRepo.Update(ctx, policy); err != nil {
		log.Printf("⚠️ Capacity auto-increase failed: %v", err)
		return
	}
	log.Printf("📈 Capacity auto-increased to %d (usage %d%%)", policy.TotalCapacity, usagePct)
}

// ListWaiting returns the waiting list, referral tier first, then by position
func (s *AdmissionService) ListWaiting(ctx context.Context) ([]*models.WaitingListEntry, error) {
	return s.waitlistRepo.List(ctx)
}

// Activate flips a queued member to ACTIVE and removes the entry. Activating
// an unknown or already-removed entry reports not-found, never a crash.
func (s *AdmissionService) Activate(ctx context.Context, entryID uint) (*models.Member, error) {
	entry, err := s.waitlistRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWaitingEntryNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.memberRepo.UpdateStatus(ctx, entry.MemberID, domain.MemberActive, &now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWaitingEntryNotFound
		}
		return nil, err
	}
	if err := s.waitlistRepo.Delete(ctx, entry.ID); err != nil {
		return nil, err
	}

	member, err := s.memberRepo.GetByID(ctx, entry.MemberID)
	if err != nil {
		return nil, err
	}

	s.notifier.WaitingListActivated(member)
	log.Printf("✅ Waiting entry %d activated (member %d)", entryID, member.ID)
	return member, nil
}
