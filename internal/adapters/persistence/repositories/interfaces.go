package repositories

import (
	"context"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"
)

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	// CreateWithAdmission decides ACTIVE vs PENDING against the capacity
	// policy and creates the member in one transaction, enqueuing a waiting
	// list entry in the same transaction when the member parks PENDING.
	// Returns the waiting position (0 when admitted ACTIVE).
	CreateWithAdmission(ctx context.Context, member *models.Member, priority int) (int, error)
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	UpdateStatus(ctx context.Context, id uint, status domain.MemberStatus, activatedAt *time.Time) error
	SetRole(ctx context.Context, id uint, role domain.Role) error
	List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.Member, int64, error)
	ListStaff(ctx context.Context) ([]*models.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountActive(ctx context.Context) (int64, error)
	CountFilleuls(ctx context.Context, referrerID uint) (int64, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*models.Member, error)
	FindByPhone(ctx context.Context, phone string) (*models.Member, error)
	FindByNationalID(ctx context.Context, nationalID string) (*models.Member, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByMemberID(ctx context.Context, memberID uint) error
	DeleteExpired(ctx context.Context) error
}

// DuplicateRepository defines parked-registration repository interface
type DuplicateRepository interface {
	Create(ctx context.Context, dup *models.PotentialDuplicate) error
	GetByID(ctx context.Context, id uint) (*models.PotentialDuplicate, error)
	ListPending(ctx context.Context, offset, limit int) ([]*models.PotentialDuplicate, int64, error)
	// MarkResolved flips status pending -> resolved status with a compare-and-set.
	// Returns false when the record does not exist or was already resolved.
	MarkResolved(ctx context.Context, id uint, status domain.DuplicateStatus, resolvedBy uint) (bool, error)
	// Reopen reverts a resolution whose follow-up member creation failed.
	Reopen(ctx context.Context, id uint) error
}

// WaitlistRepository defines waiting list repository interface. Entries are
// enqueued through MemberRepository.CreateWithAdmission so the decision and
// the entry commit in one transaction.
type WaitlistRepository interface {
	GetByID(ctx context.Context, id uint) (*models.WaitingListEntry, error)
	List(ctx context.Context) ([]*models.WaitingListEntry, error)
	Delete(ctx context.Context, id uint) error
}

// CapacityRepository defines the singleton capacity policy store
type CapacityRepository interface {
	Get(ctx context.Context) (*models.CapacityPolicy, error)
	Update(ctx context.Context, policy *models.CapacityPolicy) error
}

// LoanRepository defines loan lifecycle repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.LoanApplication) error
	GetByID(ctx context.Context, id uint) (*models.LoanApplication, error)
	List(ctx context.Context, status *domain.LoanStatus, offset, limit int) ([]*models.LoanApplication, int64, error)
	ListByMember(ctx context.Context, memberID uint) ([]*models.LoanApplication, error)
	// TransitionStatus performs a compare-and-set on the status column.
	// Returns false when the loan was not in the expected state.
	TransitionStatus(ctx context.Context, loanID uint, from, to domain.LoanStatus, updates map[string]interface{}) (bool, error)
	// ApproveWithSchedule commits the PENDING->APPROVED transition and the
	// generated installments in one transaction.
	ApproveWithSchedule(ctx context.Context, loanID uint, updates map[string]interface{}, installments []*models.Installment) (bool, error)
	GetInstallment(ctx context.Context, loanID uint, number int) (*models.Installment, error)
	// TransitionInstallment performs a compare-and-set against any of the
	// permitted source statuses.
	TransitionInstallment(ctx context.Context, installmentID uint, from []domain.InstallmentStatus, updates map[string]interface{}) (bool, error)
	CountUnpaid(ctx context.Context, loanID uint) (int64, error)
	// Settle commits the DISBURSED->REPAID cascade atomically: loan status,
	// borrower counters/score, and (when non-nil) first-time referral code.
	Settle(ctx context.Context, loanID, memberID uint, completedAt time.Time, referralCode *string) (bool, error)
	ListOverdueInstallments(ctx context.Context, asOf time.Time) ([]*models.Installment, error)
}

// UploadRepository defines stored-file repository interface
type UploadRepository interface {
	Create(ctx context.Context, file *models.UploadedFile) error
	ListExpired(ctx context.Context, asOf time.Time) ([]*models.UploadedFile, error)
	Delete(ctx context.Context, id uint) error
}
