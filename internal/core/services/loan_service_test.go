package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLoanService_Create(t *testing.T) {
	ctx := context.Background()

	activeMember := &models.Member{ID: 5, Status: domain.MemberActive, Score: 0}

	t.Run("Derives Fee And Net Amount", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		memberRepo.On("GetByID", ctx, uint(5)).Return(activeMember, nil)
		loanRepo.On("ListByMember", ctx, uint(5)).Return([]*models.LoanApplication{}, nil)
		loanRepo.On("Create", ctx, mock.AnythingOfType("*models.LoanApplication")).Return(nil)

		loan, err := svc.Create(ctx, 5, &CreateInput{RequestedAmount: 10000, Purpose: "stock"})
		assert.NoError(t, err)
		assert.Equal(t, 10000.0, loan.RequestedAmount)
		assert.Equal(t, 1000.0, loan.FeeAmount)
		assert.Equal(t, 11000.0, loan.NetAmount)
		assert.Equal(t, domain.LoanPending, loan.Status)
	})

	t.Run("Rejects Non Positive Amount", func(t *testing.T) {
		svc := NewLoanService(new(MockLoanRepo), new(MockMemberRepo), NewLogNotifier())

		_, err := svc.Create(ctx, 5, &CreateInput{RequestedAmount: 0})
		assert.ErrorIs(t, err, ErrAmountNotPositive)
	})

	t.Run("Rejects Amount Over Borrowing Limit", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(new(MockLoanRepo), memberRepo, NewLogNotifier())

		// Score 0: limit is the base 10000
		memberRepo.On("GetByID", ctx, uint(5)).Return(activeMember, nil)

		_, err := svc.Create(ctx, 5, &CreateInput{RequestedAmount: 10000.01})
		assert.ErrorIs(t, err, ErrAmountExceedsLimit)
	})

	t.Run("Score Raises The Limit", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		trusted := &models.Member{ID: 6, Status: domain.MemberActive, Score: 2}
		memberRepo.On("GetByID", ctx, uint(6)).Return(trusted, nil)
		loanRepo.On("ListByMember", ctx, uint(6)).Return([]*models.LoanApplication{}, nil)
		loanRepo.On("Create", ctx, mock.AnythingOfType("*models.LoanApplication")).Return(nil)

		_, err := svc.Create(ctx, 6, &CreateInput{RequestedAmount: 20000})
		assert.NoError(t, err)
	})

	t.Run("Rejects Pending Member", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(new(MockLoanRepo), memberRepo, NewLogNotifier())

		memberRepo.On("GetByID", ctx, uint(7)).Return(&models.Member{ID: 7, Status: domain.MemberPending}, nil)

		_, err := svc.Create(ctx, 7, &CreateInput{RequestedAmount: 1000})
		assert.ErrorIs(t, err, ErrBorrowerNotActive)
	})

	t.Run("Rejects Second Open Loan", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		memberRepo.On("GetByID", ctx, uint(5)).Return(activeMember, nil)
		loanRepo.On("ListByMember", ctx, uint(5)).Return([]*models.LoanApplication{
			{ID: 1, Status: domain.LoanDisbursed},
		}, nil)

		_, err := svc.Create(ctx, 5, &CreateInput{RequestedAmount: 1000})
		assert.ErrorIs(t, err, ErrOpenLoanExists)
	})

	t.Run("Terminal Loans Do Not Block", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		memberRepo.On("GetByID", ctx, uint(5)).Return(activeMember, nil)
		loanRepo.On("ListByMember", ctx, uint(5)).Return([]*models.LoanApplication{
			{ID: 1, Status: domain.LoanRepaid},
			{ID: 2, Status: domain.LoanRejected},
		}, nil)
		loanRepo.On("Create", ctx, mock.AnythingOfType("*models.LoanApplication")).Return(nil)

		_, err := svc.Create(ctx, 5, &CreateInput{RequestedAmount: 1000})
		assert.NoError(t, err)
	})
}

func TestBuildSchedule(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Even Split", func(t *testing.T) {
		insts := buildSchedule(1, 11000, from)
		assert.Len(t, insts, 2)
		assert.Equal(t, 5500.0, insts[0].DueAmount)
		assert.Equal(t, 5500.0, insts[1].DueAmount)
		assert.Equal(t, from.AddDate(0, 0, 30), insts[0].DueDate)
		assert.Equal(t, from.AddDate(0, 0, 60), insts[1].DueDate)
		assert.Equal(t, domain.InstallmentPending, insts[0].Status)
	})

	t.Run("Remainder Goes To The Last Installment", func(t *testing.T) {
		insts := buildSchedule(1, 100.01, from)
		assert.Equal(t, 50.01, insts[0].DueAmount)
		assert.Equal(t, 50.00, insts[1].DueAmount)
		assert.InDelta(t, 100.01, insts[0].DueAmount+insts[1].DueAmount, 0.001)
	})
}

func TestLoanService_Decisions(t *testing.T) {
	ctx := context.Background()

	t.Run("Approve Generates Schedule", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		pending := &models.LoanApplication{ID: 1, MemberID: 5, Status: domain.LoanPending, NetAmount: 11000}
		loanRepo.On("GetByID", ctx, uint(1)).Return(pending, nil)
		loanRepo.On("ApproveWithSchedule", ctx, uint(1), mock.Anything, mock.MatchedBy(func(insts []*models.Installment) bool {
			return len(insts) == 2 && insts[0].DueAmount == 5500 && insts[1].DueAmount == 5500
		})).Return(true, nil)

		_, err := svc.Approve(ctx, 1, 9, nil)
		assert.NoError(t, err)
	})

	t.Run("Approve Lost Race Names Current State", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		rejected := &models.LoanApplication{ID: 1, Status: domain.LoanRejected, NetAmount: 11000}
		loanRepo.On("GetByID", ctx, uint(1)).Return(rejected, nil)
		loanRepo.On("ApproveWithSchedule", ctx, uint(1), mock.Anything, mock.Anything).Return(false, nil)

		_, err := svc.Approve(ctx, 1, 9, nil)
		assert.True(t, domain.IsInvalidTransition(err))
		assert.Contains(t, err.Error(), "REJECTED")
	})

	t.Run("Reject Requires Note", func(t *testing.T) {
		svc := NewLoanService(new(MockLoanRepo), new(MockMemberRepo), NewLogNotifier())

		empty := "  "
		_, err := svc.Reject(ctx, 1, 9, &empty)
		assert.ErrorIs(t, err, ErrRejectNeedsNote)

		_, err = svc.Reject(ctx, 1, 9, nil)
		assert.ErrorIs(t, err, ErrRejectNeedsNote)
	})

	t.Run("Disburse From Approved", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		approved := &models.LoanApplication{ID: 1, Status: domain.LoanApproved}
		loanRepo.On("GetByID", ctx, uint(1)).Return(approved, nil)
		loanRepo.On("TransitionStatus", ctx, uint(1), domain.LoanApproved, domain.LoanDisbursed, mock.Anything).Return(true, nil)

		_, err := svc.Disburse(ctx, 1, 9)
		assert.NoError(t, err)
	})
}

func TestLoanService_GetByID(t *testing.T) {
	ctx := context.Background()

	loanRepo := new(MockLoanRepo)
	svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())
	loanRepo.On("GetByID", ctx, uint(1)).Return(&models.LoanApplication{ID: 1, MemberID: 5}, nil)

	t.Run("Owner Sees Own Loan", func(t *testing.T) {
		loan, err := svc.GetByID(ctx, 1, 5)
		assert.NoError(t, err)
		assert.Equal(t, uint(1), loan.ID)
	})

	t.Run("Other Member Is Refused", func(t *testing.T) {
		_, err := svc.GetByID(ctx, 1, 6)
		assert.ErrorIs(t, err, ErrNotLoanOwner)
	})

	t.Run("Zero Requester Skips Ownership", func(t *testing.T) {
		_, err := svc.GetByID(ctx, 1, 0)
		assert.NoError(t, err)
	})
}

func TestLoanService_SubmitProof(t *testing.T) {
	ctx := context.Background()
	loan := &models.LoanApplication{ID: 1, MemberID: 5, Status: domain.LoanDisbursed}

	t.Run("Requires Proof URL", func(t *testing.T) {
		svc := NewLoanService(new(MockLoanRepo), new(MockMemberRepo), NewLogNotifier())

		_, err := svc.SubmitProof(ctx, 1, 1, 5, "  ")
		assert.ErrorIs(t, err, ErrProofRequired)
	})

	t.Run("Only The Borrower May Submit", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)

		_, err := svc.SubmitProof(ctx, 1, 1, 6, "/uploads/proof.jpg")
		assert.ErrorIs(t, err, ErrNotLoanOwner)
	})

	t.Run("Moves To Awaiting Confirmation", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		inst := &models.Installment{ID: 11, LoanID: 1, Number: 1, Status: domain.InstallmentPending}
		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)
		loanRepo.On("GetInstallment", ctx, uint(1), 1).Return(inst, nil)
		loanRepo.On("TransitionInstallment", ctx, uint(11),
			[]domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentLate},
			mock.Anything).Return(true, nil)

		_, err := svc.SubmitProof(ctx, 1, 1, 5, "/uploads/proof.jpg")
		assert.NoError(t, err)
	})
}

func TestLoanService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	loan := &models.LoanApplication{ID: 1, MemberID: 5, Status: domain.LoanDisbursed}

	anySource := []domain.InstallmentStatus{
		domain.InstallmentConfirmation, domain.InstallmentPending, domain.InstallmentLate,
	}

	t.Run("Already Paid Is Refused", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		svc := NewLoanService(loanRepo, new(MockMemberRepo), NewLogNotifier())

		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)
		loanRepo.On("GetInstallment", ctx, uint(1), 1).Return(&models.Installment{ID: 11, Status: domain.InstallmentPaid}, nil)

		_, err := svc.ConfirmPayment(ctx, 1, 1, 9)
		assert.ErrorIs(t, err, ErrInstallmentAlreadyPaid)
	})

	t.Run("Partial Repayment Does Not Settle", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		inst := &models.Installment{ID: 11, LoanID: 1, Number: 1, DueAmount: 5500, Status: domain.InstallmentConfirmation}
		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)
		loanRepo.On("GetInstallment", ctx, uint(1), 1).Return(inst, nil)
		loanRepo.On("TransitionInstallment", ctx, uint(11), anySource, mock.Anything).Return(true, nil)
		loanRepo.On("CountUnpaid", ctx, uint(1)).Return(int64(1), nil)

		_, err := svc.ConfirmPayment(ctx, 1, 1, 9)
		assert.NoError(t, err)
		loanRepo.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Last Installment Settles With First Referral Code", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		inst := &models.Installment{ID: 12, LoanID: 1, Number: 2, DueAmount: 5500, Status: domain.InstallmentConfirmation}
		borrower := &models.Member{ID: 5, FirstName: "Marie", LoansRepaid: 0, ReferralCode: nil}

		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)
		loanRepo.On("GetInstallment", ctx, uint(1), 2).Return(inst, nil)
		loanRepo.On("TransitionInstallment", ctx, uint(12), anySource, mock.Anything).Return(true, nil)
		loanRepo.On("CountUnpaid", ctx, uint(1)).Return(int64(0), nil)
		memberRepo.On("GetByID", ctx, uint(5)).Return(borrower, nil)
		loanRepo.On("Settle", ctx, uint(1), uint(5), mock.Anything, mock.MatchedBy(func(code *string) bool {
			return code != nil && strings.HasPrefix(*code, "MARIE") && len(*code) == len("MARIE")+3
		})).Return(true, nil)

		_, err := svc.ConfirmPayment(ctx, 1, 2, 9)
		assert.NoError(t, err)
		loanRepo.AssertExpectations(t)
	})

	t.Run("Repeat Borrower Gets No New Code", func(t *testing.T) {
		loanRepo := new(MockLoanRepo)
		memberRepo := new(MockMemberRepo)
		svc := NewLoanService(loanRepo, memberRepo, NewLogNotifier())

		existing := "MARIE042"
		inst := &models.Installment{ID: 12, LoanID: 1, Number: 2, DueAmount: 5500, Status: domain.InstallmentConfirmation}
		borrower := &models.Member{ID: 5, FirstName: "Marie", LoansRepaid: 1, ReferralCode: &existing}

		loanRepo.On("GetByID", ctx, uint(1)).Return(loan, nil)
		loanRepo.On("GetInstallment", ctx, uint(1), 2).Return(inst, nil)
		loanRepo.On("TransitionInstallment", ctx, uint(12), anySource, mock.Anything).Return(true, nil)
		loanRepo.On("CountUnpaid", ctx, uint(1)).Return(int64(0), nil)
		memberRepo.On("GetByID", ctx, uint(5)).Return(borrower, nil)
		loanRepo.On("Settle", ctx, uint(1), uint(5), mock.Anything, (*string)(nil)).Return(true, nil)

		_, err := svc.ConfirmPayment(ctx, 1, 2, 9)
		assert.NoError(t, err)
	})
}

func TestNewReferralCode(t *testing.T) {
	code := newReferralCode("  jean ")
	assert.True(t, strings.HasPrefix(code, "JEAN"))
	assert.Len(t, code, len("JEAN")+3)

	// Nameless members still get a usable code
	assert.True(t, strings.HasPrefix(newReferralCode("  "), "MEMBER"))
}
