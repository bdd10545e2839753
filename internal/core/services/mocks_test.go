package services

import (
	"context"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) Create(ctx context.Context, member *models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) CreateWithAdmission(ctx context.Context, member *models.Member, priority int) (int, error) {
	args := m.Called(ctx, member, priority)
	return args.Int(0), args.Error(1)
}
func (m *MockMemberRepo) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}
func (m *MockMemberRepo) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}
func (m *MockMemberRepo) GetByReferralCode(ctx context.Context, code string) (*models.Member, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}
func (m *MockMemberRepo) Update(ctx context.Context, member *models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) UpdateStatus(ctx context.Context, id uint, status domain.MemberStatus, activatedAt *time.Time) error {
	args := m.Called(ctx, id, status, activatedAt)
	return args.Error(0)
}
func (m *MockMemberRepo) SetRole(ctx context.Context, id uint, role domain.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}
func (m *MockMemberRepo) List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.Member, int64, error) {
	args := m.Called(ctx, role, offset, limit)
	return args.Get(0).([]*models.Member), args.Get(1).(int64), args.Error(2)
}
func (m *MockMemberRepo) ListStaff(ctx context.Context) ([]*models.Member, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Member), args.Error(1)
}
func (m *MockMemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}
func (m *MockMemberRepo) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMemberRepo) CountFilleuls(ctx context.Context, referrerID uint) (int64, error) {
	args := m.Called(ctx, referrerID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMemberRepo) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMemberRepo) FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*models.Member, error) {
	args := m.Called(ctx, firstName, lastName, birthDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}
func (m *MockMemberRepo) FindByPhone(ctx context.Context, phone string) (*models.Member, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}
func (m *MockMemberRepo) FindByNationalID(ctx context.Context, nationalID string) (*models.Member, error) {
	args := m.Called(ctx, nationalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

// MockDuplicateRepo
type MockDuplicateRepo struct {
	mock.Mock
}

func (m *MockDuplicateRepo) Create(ctx context.Context, dup *models.PotentialDuplicate) error {
	args := m.Called(ctx, dup)
	return args.Error(0)
}
func (m *MockDuplicateRepo) GetByID(ctx context.Context, id uint) (*models.PotentialDuplicate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PotentialDuplicate), args.Error(1)
}
func (m *MockDuplicateRepo) ListPending(ctx context.Context, offset, limit int) ([]*models.PotentialDuplicate, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]*models.PotentialDuplicate), args.Get(1).(int64), args.Error(2)
}
func (m *MockDuplicateRepo) MarkResolved(ctx context.Context, id uint, status domain.DuplicateStatus, resolvedBy uint) (bool, error) {
	args := m.Called(ctx, id, status, resolvedBy)
	return args.Bool(0), args.Error(1)
}
func (m *MockDuplicateRepo) Reopen(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockWaitlistRepo
type MockWaitlistRepo struct {
	mock.Mock
}

func (m *MockWaitlistRepo) GetByID(ctx context.Context, id uint) (*models.WaitingListEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingListEntry), args.Error(1)
}
func (m *MockWaitlistRepo) List(ctx context.Context) ([]*models.WaitingListEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.WaitingListEntry), args.Error(1)
}
func (m *MockWaitlistRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCapacityRepo
type MockCapacityRepo struct {
	mock.Mock
}

func (m *MockCapacityRepo) Get(ctx context.Context) (*models.CapacityPolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CapacityPolicy), args.Error(1)
}
func (m *MockCapacityRepo) Update(ctx context.Context, policy *models.CapacityPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

// MockLoanRepo
type MockLoanRepo struct {
	mock.Mock
}

func (m *MockLoanRepo) Create(ctx context.Context, loan *models.LoanApplication) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}
func (m *MockLoanRepo) GetByID(ctx context.Context, id uint) (*models.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoanApplication), args.Error(1)
}
func (m *MockLoanRepo) List(ctx context.Context, status *domain.LoanStatus, offset, limit int) ([]*models.LoanApplication, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	return args.Get(0).([]*models.LoanApplication), args.Get(1).(int64), args.Error(2)
}
func (m *MockLoanRepo) ListByMember(ctx context.Context, memberID uint) ([]*models.LoanApplication, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]*models.LoanApplication), args.Error(1)
}
func (m *MockLoanRepo) TransitionStatus(ctx context.Context, loanID uint, from, to domain.LoanStatus, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, loanID, from, to, updates)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoanRepo) ApproveWithSchedule(ctx context.Context, loanID uint, updates map[string]interface{}, installments []*models.Installment) (bool, error) {
	args := m.Called(ctx, loanID, updates, installments)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoanRepo) GetInstallment(ctx context.Context, loanID uint, number int) (*models.Installment, error) {
	args := m.Called(ctx, loanID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Installment), args.Error(1)
}
func (m *MockLoanRepo) TransitionInstallment(ctx context.Context, installmentID uint, from []domain.InstallmentStatus, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, installmentID, from, updates)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoanRepo) CountUnpaid(ctx context.Context, loanID uint) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLoanRepo) Settle(ctx context.Context, loanID, memberID uint, completedAt time.Time, referralCode *string) (bool, error) {
	args := m.Called(ctx, loanID, memberID, completedAt, referralCode)
	return args.Bool(0), args.Error(1)
}
func (m *MockLoanRepo) ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*models.Installment, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]*models.Installment), args.Error(1)
}

// MockRefreshTokenRepo
type MockRefreshTokenRepo struct {
	mock.Mock
}

func (m *MockRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *MockRefreshTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}
func (m *MockRefreshTokenRepo) Revoke(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRefreshTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}
func (m *MockRefreshTokenRepo) RevokeAllByMemberID(ctx context.Context, memberID uint) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}
func (m *MockRefreshTokenRepo) DeleteExpired(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUploadRepo
type MockUploadRepo struct {
	mock.Mock
}

func (m *MockUploadRepo) Create(ctx context.Context, file *models.UploadedFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}
func (m *MockUploadRepo) ListExpired(ctx context.Context, asOf time.Time) ([]*models.UploadedFile, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]*models.UploadedFile), args.Error(1)
}
func (m *MockUploadRepo) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNotifier records notification events without delivering anything
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) RegistrationUnderReview(email string) {
	m.Called(email)
}
func (m *MockNotifier) AdmissionDecided(member *models.Member, waitingPosition int) {
	m.Called(member, waitingPosition)
}
func (m *MockNotifier) WaitingListActivated(member *models.Member) {
	m.Called(member)
}
func (m *MockNotifier) LoanDecided(loan *models.LoanApplication) {
	m.Called(loan)
}
func (m *MockNotifier) LoanDisbursed(loan *models.LoanApplication) {
	m.Called(loan)
}
func (m *MockNotifier) PaymentConfirmed(loan *models.LoanApplication, installmentNumber int) {
	m.Called(loan, installmentNumber)
}
func (m *MockNotifier) InstallmentLate(inst *models.Installment, daysLate int) {
	m.Called(inst, daysLate)
}
