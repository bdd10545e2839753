package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// Duplicate sentinel errors
var (
	ErrDuplicatePending  = errors.New("registration parked for manual verification")
	ErrDuplicateNotFound = errors.New("potential duplicate not found or already resolved")
	ErrRejectNeedsReason = errors.New("rejecting a registration requires a reason")
)

// Collision reasons, in attribution priority order (identity > phone > ID).
// Display-only tie-break: when several checks fire, the first one is reported.
const (
	ReasonIdentity   = "identical name and birth date"
	ReasonPhone      = "identical phone number"
	ReasonNationalID = "identical national ID"
)

// NormalizePhone strips everything but digits so "07-01 02.03" and
// "0701020 3" compare equal.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidate is a registration payload under sentinel evaluation. The password
// is already hashed: the snapshot must never hold the clear text.
type Candidate struct {
	Email          string
	HashedPassword string
	FirstName      string
	LastName       string
	Phone          string // normalized
	NationalID     string
	BirthDate      time.Time
	ReferralCode   *string
}

// Verdict is the sentinel's evaluation result
type Verdict struct {
	IsDuplicate   bool
	MatchedMember *models.Member
	Reason        string
}

// DuplicateService is the duplicate-identity pre-check run before a new
// member record is created, plus the staff resolution flow for parked
// registrations.
type DuplicateService struct {
	memberRepo repositories.MemberRepository
	dupRepo    repositories.DuplicateRepository
	admission  *AdmissionService
	notifier   Notifier
}

// NewDuplicateService creates a new duplicate service
func NewDuplicateService(
	memberRepo repositories.MemberRepository,
	dupRepo repositories.DuplicateRepository,
	admission *AdmissionService,
	notifier Notifier,
) *DuplicateService {
	return &DuplicateService{
		memberRepo: memberRepo,
		dupRepo:    dupRepo,
		admission:  admission,
		notifier:   notifier,
	}
}

// Evaluate runs the three independent collision checks against the identity
// registry. Email equality is NOT handled here: a shared email is an outright
// rejection upstream, never a parked duplicate.
func (s *DuplicateService) Evaluate(ctx context.Context, cand *Candidate) (*Verdict, error) {
	matched, err := s.memberRepo.FindByNameAndBirthDate(ctx, cand.FirstName, cand.LastName, cand.BirthDate)
	if err != nil {
		return nil, err
	}
	if matched != nil {
		return &Verdict{IsDuplicate: true, MatchedMember: matched, Reason: ReasonIdentity}, nil
	}

	if cand.Phone != "" {
		matched, err = s.memberRepo.FindByPhone(ctx, cand.Phone)
		if err != nil {
			return nil, err
		}
		if matched != nil {
			return &Verdict{IsDuplicate: true, MatchedMember: matched, Reason: ReasonPhone}, nil
		}
	}

	if cand.NationalID != "" {
		matched, err = s.memberRepo.FindByNationalID(ctx, cand.NationalID)
		if err != nil {
			return nil, err
		}
		if matched != nil {
			return &Verdict{IsDuplicate: true, MatchedMember: matched, Reason: ReasonNationalID}, nil
		}
	}

	return &Verdict{}, nil
}

// Park persists the parked registration in lieu of a member. A persistence
// failure here fails the whole registration: the caller must not create the
// member afterwards.
func (s *DuplicateService) Park(ctx context.Context, cand *Candidate, verdict *Verdict) error {
	dup := &models.PotentialDuplicate{
		Email:           cand.Email,
		Password:        cand.HashedPassword,
		FirstName:       cand.FirstName,
		LastName:        cand.LastName,
		Phone:           cand.Phone,
		NationalID:      cand.NationalID,
		BirthDate:       cand.BirthDate,
		ReferralCode:    cand.ReferralCode,
		MatchedMemberID: verdict.MatchedMember.ID,
		Reason:          verdict.Reason,
		Status:          domain.DuplicatePending,
	}
	if err := s.dupRepo.Create(ctx, dup); err != nil {
		return err
	}

	s.notifier.RegistrationUnderReview(cand.Email)
	log.Printf("🛑 Registration parked for review: %s (matched member %d, %s)",
		cand.Email, verdict.MatchedMember.ID, verdict.Reason)
	return nil
}

// ListPending lists unresolved parked registrations
func (s *DuplicateService) ListPending(ctx context.Context, offset, limit int) ([]*models.PotentialDuplicate, int64, error) {
	return s.dupRepo.ListPending(ctx, offset, limit)
}

// ResolveInput represents a staff resolution request
type ResolveInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note,omitempty"`
}

// Resolve settles a parked registration. Either way exactly one member is
// created: approval routes the snapshot through the admission controller
// (ACTIVE track), rejection creates a REJECTED member carrying the reason.
// The compare-and-set on the pending status makes double resolution a
// not-found, never a second member.
func (s *DuplicateService) Resolve(ctx context.Context, dupID uint, input *ResolveInput, staffID uint) (*models.Member, error) {
	if !input.Approve && strings.TrimSpace(input.Note) == "" {
		return nil, ErrRejectNeedsReason
	}

	dup, err := s.dupRepo.GetByID(ctx, dupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDuplicateNotFound
		}
		return nil, err
	}

	status := domain.DuplicateRejected
	if input.Approve {
		status = domain.DuplicateApproved
	}

	won, err := s.dupRepo.MarkResolved(ctx, dupID, status, staffID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrDuplicateNotFound
	}

	member, err := s.createResolvedMember(ctx, dup, input)
	if err != nil {
		// The registration must never be silently discarded: put the record
		// back in the review queue when member creation fails.
		if reopenErr := s.dupRepo.Reopen(ctx, dupID); reopenErr != nil {
			log.Printf("❌ Failed to reopen duplicate %d after member creation error: %v", dupID, reopenErr)
		}
		return nil, err
	}

	log.Printf("✅ Duplicate %d resolved (%s) → member %d", dupID, status, member.ID)
	return member, nil
}

func (s *DuplicateService) createResolvedMember(ctx context.Context, dup *models.PotentialDuplicate, input *ResolveInput) (*models.Member, error) {
	if input.Approve {
		return s.admission.Admit(ctx, &AdmitInput{
			Email:          dup.Email,
			HashedPassword: dup.Password,
			FirstName:      dup.FirstName,
			LastName:       dup.LastName,
			Phone:          dup.Phone,
			NationalID:     dup.NationalID,
			BirthDate:      dup.BirthDate,
			ReferralCode:   dup.ReferralCode,
		})
	}

	reason := input.Note
	if reason == "" {
		reason = fmt.Sprintf("duplicate registration rejected (%s)", dup.Reason)
	}
	member := &models.Member{
		Email:           dup.Email,
		Password:        dup.Password,
		FirstName:       dup.FirstName,
		LastName:        dup.LastName,
		Phone:           dup.Phone,
		NationalID:      dup.NationalID,
		BirthDate:       dup.BirthDate,
		Role:            domain.RoleClient,
		Status:          domain.MemberRejected,
		RejectionReason: &reason,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
