package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// Loan errors
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrNotLoanOwner           = errors.New("loan does not belong to this member")
	ErrBorrowerNotActive      = errors.New("only active members can request loans")
	ErrAmountExceedsLimit     = errors.New("requested amount exceeds borrowing limit")
	ErrAmountNotPositive      = errors.New("requested amount must be positive")
	ErrOpenLoanExists         = errors.New("member already has an open loan")
	ErrRejectNeedsNote        = errors.New("rejecting a loan requires a decision note")
	ErrInstallmentAlreadyPaid = errors.New("installment already confirmed as paid")
	ErrProofRequired          = errors.New("a payment proof URL is required")
)

// LoanService drives the loan state machine. Every status transition is a
// compare-and-set in the repository; a lost race surfaces as an
// InvalidTransitionError naming the state the record actually reached.
type LoanService struct {
	loanRepo   repositories.LoanRepository
	memberRepo repositories.MemberRepository
	notifier   Notifier
}

// NewLoanService creates a new loan service
func NewLoanService(loanRepo repositories.LoanRepository, memberRepo repositories.MemberRepository, notifier Notifier) *LoanService {
	return &LoanService{
		loanRepo:   loanRepo,
		memberRepo: memberRepo,
		notifier:   notifier,
	}
}

// CreateInput represents a loan request
type CreateInput struct {
	RequestedAmount float64 `json:"requested_amount"`
	Purpose         string  `json:"purpose"`
}

// Create opens a loan application for an active member. The fee and net
// amount are derived here, once, from the requested amount.
func (s *LoanService) Create(ctx context.Context, memberID uint, input *CreateInput) (*models.LoanApplication, error) {
	if input.RequestedAmount <= 0 {
		return nil, ErrAmountNotPositive
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if member.Status != domain.MemberActive {
		return nil, ErrBorrowerNotActive
	}

	limit := domain.BorrowingLimit(member.Score)
	if input.RequestedAmount > limit {
		return nil, fmt.Errorf("%w: limit is %.2f for score %d", ErrAmountExceedsLimit, limit, member.Score)
	}

	// One open case at a time: any non-terminal loan blocks a new request
	existing, err := s.loanRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	for _, l := range existing {
		if !l.Status.IsTerminal() {
			return nil, ErrOpenLoanExists
		}
	}

	fee := input.RequestedAmount * domain.FeeRate
	loan := &models.LoanApplication{
		MemberID:        memberID,
		Status:          domain.LoanPending,
		RequestedAmount: input.RequestedAmount,
		FeeAmount:       fee,
		NetAmount:       input.RequestedAmount + fee,
		Purpose:         input.Purpose,
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}

	log.Printf("💰 Loan #%d created: member %d requested %.2f (net %.2f)", loan.ID, memberID, loan.RequestedAmount, loan.NetAmount)
	return loan, nil
}

// GetByID returns a loan with its installments. When requesterID is non-zero
// the loan must belong to that member.
func (s *LoanService) GetByID(ctx context.Context, loanID uint, requesterID uint) (*models.LoanApplication, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if requesterID != 0 && loan.MemberID != requesterID {
		return nil, ErrNotLoanOwner
	}
	return loan, nil
}

// List returns loans, optionally filtered by status
func (s *LoanService) List(ctx context.Context, status *domain.LoanStatus, offset, limit int) ([]*models.LoanApplication, int64, error) {
	return s.loanRepo.List(ctx, status, offset, limit)
}

// ListByMember returns all loans of one member
func (s *LoanService) ListByMember(ctx context.Context, memberID uint) ([]*models.LoanApplication, error) {
	return s.loanRepo.ListByMember(ctx, memberID)
}

// Approve moves PENDING -> APPROVED and generates the repayment schedule in
// the same transaction. The net amount is split over two installments due 30
// and 60 days out; the second takes the remainder so the sum is exact.
func (s *LoanService) Approve(ctx context.Context, loanID, approverID uint, note *string) (*models.LoanApplication, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	now := time.Now()
	installments := buildSchedule(loan.ID, loan.NetAmount, now)

	updates := map[string]interface{}{
		"approver_id": approverID,
		"approved_at": now,
	}
	if note != nil {
		updates["decision_note"] = *note
	}

	won, err := s.loanRepo.ApproveWithSchedule(ctx, loanID, updates, installments)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.transitionConflict(ctx, loanID, "approve")
	}

	log.Printf("✅ Loan #%d approved by member %d", loanID, approverID)
	approved, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s.notifier.LoanDecided(approved)
	return approved, nil
}

// Reject moves PENDING -> REJECTED. A decision note is mandatory.
func (s *LoanService) Reject(ctx context.Context, loanID, approverID uint, note *string) (*models.LoanApplication, error) {
	if note == nil || strings.TrimSpace(*note) == "" {
		return nil, ErrRejectNeedsNote
	}

	_, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	won, err := s.loanRepo.TransitionStatus(ctx, loanID, domain.LoanPending, domain.LoanRejected, map[string]interface{}{
		"approver_id":   approverID,
		"decision_note": *note,
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.transitionConflict(ctx, loanID, "reject")
	}

	log.Printf("🚫 Loan #%d rejected by member %d", loanID, approverID)
	rejected, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s.notifier.LoanDecided(rejected)
	return rejected, nil
}

// Disburse moves APPROVED -> DISBURSED, recording the payout moment
func (s *LoanService) Disburse(ctx context.Context, loanID, staffID uint) (*models.LoanApplication, error) {
	_, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	won, err := s.loanRepo.TransitionStatus(ctx, loanID, domain.LoanApproved, domain.LoanDisbursed, map[string]interface{}{
		"disbursed_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.transitionConflict(ctx, loanID, "disburse")
	}

	log.Printf("💸 Loan #%d disbursed by member %d", loanID, staffID)
	disbursed, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s.notifier.LoanDisbursed(disbursed)
	return disbursed, nil
}

// MarkDefault moves DISBURSED -> DEFAULT. Used by staff and by the overdue
// sweep once an installment crosses the late threshold.
func (s *LoanService) MarkDefault(ctx context.Context, loanID uint, note *string) (*models.LoanApplication, error) {
	updates := map[string]interface{}{}
	if note != nil {
		updates["decision_note"] = *note
	}

	won, err := s.loanRepo.TransitionStatus(ctx, loanID, domain.LoanDisbursed, domain.LoanDefault, updates)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.transitionConflict(ctx, loanID, "mark default")
	}

	log.Printf("⛔ Loan #%d marked DEFAULT", loanID)
	return s.loanRepo.GetByID(ctx, loanID)
}

// SubmitProof attaches a payment proof to an installment and moves it to
// EN_ATTENTE_CONFIRMATION. Only the borrower may submit, and only while the
// installment is awaiting payment (late installments included).
func (s *LoanService) SubmitProof(ctx context.Context, loanID uint, number int, memberID uint, proofURL string) (*models.Installment, error) {
	if strings.TrimSpace(proofURL) == "" {
		return nil, ErrProofRequired
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	if loan.MemberID != memberID {
		return nil, ErrNotLoanOwner
	}

	inst, err := s.loanRepo.GetInstallment(ctx, loanID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstallmentNotFound
		}
		return nil, err
	}

	won, err := s.loanRepo.TransitionInstallment(ctx, inst.ID,
		[]domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentLate},
		map[string]interface{}{
			"status":    domain.InstallmentConfirmation,
			"proof_url": proofURL,
		})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.installmentConflict(ctx, loanID, number, "submit proof")
	}

	log.Printf("🧾 Proof submitted for loan #%d installment %d", loanID, number)
	return s.loanRepo.GetInstallment(ctx, loanID, number)
}

// ConfirmPayment is the staff confirmation that money actually arrived. The
// usual source state is EN_ATTENTE_CONFIRMATION; confirming straight from
// EN_ATTENTE or EN_RETARD is allowed for payments received out of band. When
// the last installment is confirmed the loan settles: REPAID, counters, and
// the first-time referral code, all in one transaction.
func (s *LoanService) ConfirmPayment(ctx context.Context, loanID uint, number int, staffID uint) (*models.Installment, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}

	inst, err := s.loanRepo.GetInstallment(ctx, loanID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstallmentNotFound
		}
		return nil, err
	}
	if inst.Status == domain.InstallmentPaid {
		return nil, ErrInstallmentAlreadyPaid
	}

	now := time.Now()
	won, err := s.loanRepo.TransitionInstallment(ctx, inst.ID,
		[]domain.InstallmentStatus{domain.InstallmentConfirmation, domain.InstallmentPending, domain.InstallmentLate},
		map[string]interface{}{
			"status":      domain.InstallmentPaid,
			"paid_amount": inst.DueAmount,
			"paid_at":     now,
		})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.installmentConflict(ctx, loanID, number, "confirm payment")
	}

	s.notifier.PaymentConfirmed(loan, number)
	log.Printf("✅ Payment confirmed for loan #%d installment %d by member %d", loanID, number, staffID)

	unpaid, err := s.loanRepo.CountUnpaid(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if unpaid == 0 {
		if err := s.settle(ctx, loan); err != nil {
			return nil, err
		}
	}

	return s.loanRepo.GetInstallment(ctx, loanID, number)
}

// settle closes the loan once every installment is PAYEE. The Settle CAS
// guarantees the counters and the referral code are applied exactly once even
// when two confirmations race on the last installment.
func (s *LoanService) settle(ctx context.Context, loan *models.LoanApplication) error {
	member, err := s.memberRepo.GetByID(ctx, loan.MemberID)
	if err != nil {
		return err
	}

	now := time.Now()
	for attempt := 0; attempt < 5; attempt++ {
		var code *string
		// The referral code is earned on the first fully repaid loan and
		// never replaced afterwards
		if member.LoansRepaid == 0 && member.ReferralCode == nil {
			c := newReferralCode(member.FirstName)
			code = &c
		}

		won, err := s.loanRepo.Settle(ctx, loan.ID, loan.MemberID, now, code)
		if err != nil {
			// Retry with a fresh code when the random suffix collided
			if code != nil && isDuplicateKey(err) {
				continue
			}
			return err
		}
		if won {
			log.Printf("🎉 Loan #%d fully repaid by member %d", loan.ID, loan.MemberID)
		}
		return nil
	}
	return errors.New("could not allocate a unique referral code")
}

// buildSchedule splits the net amount in two equal halves due 30 and 60 days
// out. The last installment takes the remainder so the parts always sum to
// the exact net amount.
func buildSchedule(loanID uint, netAmount float64, from time.Time) []*models.Installment {
	half := roundCents(netAmount / domain.InstallmentCount)
	installments := make([]*models.Installment, 0, domain.InstallmentCount)
	allocated := 0.0
	for i := 1; i <= domain.InstallmentCount; i++ {
		amount := half
		if i == domain.InstallmentCount {
			amount = roundCents(netAmount - allocated)
		}
		allocated += amount
		installments = append(installments, &models.Installment{
			LoanID:    loanID,
			Number:    i,
			DueDate:   from.AddDate(0, 0, i*domain.InstallmentSpanDays),
			DueAmount: amount,
			Status:    domain.InstallmentPending,
		})
	}
	return installments
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// newReferralCode builds FIRSTNAME + 3 random digits
func newReferralCode(firstName string) string {
	name := strings.ToUpper(strings.TrimSpace(firstName))
	if name == "" {
		name = "MEMBER"
	}
	return fmt.Sprintf("%s%03d", name, rand.Intn(1000))
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry") ||
		strings.Contains(err.Error(), "1062")
}

// transitionConflict re-reads the loan after a lost CAS so the error names
// the state that actually blocked the operation
func (s *LoanService) transitionConflict(ctx context.Context, loanID uint, op string) error {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		return err
	}
	return domain.NewInvalidTransition("loan", string(loan.Status), op)
}

func (s *LoanService) installmentConflict(ctx context.Context, loanID uint, number int, op string) error {
	inst, err := s.loanRepo.GetInstallment(ctx, loanID, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInstallmentNotFound
		}
		return err
	}
	return domain.NewInvalidTransition("installment", string(inst.Status), op)
}
