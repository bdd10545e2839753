package models

import (
	"time"

	"solilend/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Identity Registry
// ============================================================

// Member represents the members table. Members are never hard-deleted:
// removal flips the status to REMOVED so audit queries still see the row.
type Member struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	Email           string              `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password        string              `gorm:"size:255;not null" json:"-"`
	FirstName       string              `gorm:"size:50;not null" json:"first_name"`
	LastName        string              `gorm:"size:50;not null" json:"last_name"`
	Phone           string              `gorm:"size:20;index;not null" json:"phone"` // normalized digits only
	NationalID      string              `gorm:"size:50;index" json:"national_id"`
	BirthDate       time.Time           `gorm:"type:date" json:"birth_date"`
	Score           int                 `gorm:"default:0" json:"score"`
	Status          domain.MemberStatus `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	Role            domain.Role         `gorm:"size:20;not null;default:'CLIENT'" json:"role"`
	ReferralCode    *string             `gorm:"size:20;uniqueIndex" json:"referral_code"`
	ReferrerID      *uint               `gorm:"index" json:"referrer_id"`
	LoansRepaid     int                 `gorm:"default:0" json:"loans_repaid"`
	RejectionReason *string             `gorm:"type:text" json:"rejection_reason,omitempty"`
	IDCardURL       *string             `gorm:"size:255" json:"id_card_url,omitempty"`
	SelfieURL       *string             `gorm:"size:255" json:"selfie_url,omitempty"`
	ActivatedAt     *time.Time          `json:"activated_at"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations (arena-style: back-references resolved by lookup, never embedded cycles)
	Referrer *Member  `gorm:"foreignKey:ReferrerID" json:"-"`
	Filleuls []Member `gorm:"foreignKey:ReferrerID" json:"filleuls,omitempty"`
}

func (Member) TableName() string {
	return "members"
}

// MemberResponse DTO
type MemberResponse struct {
	ID           uint                `json:"id"`
	Email        string              `json:"email"`
	FirstName    string              `json:"first_name"`
	LastName     string              `json:"last_name"`
	Phone        string              `json:"phone"`
	Score        int                 `json:"score"`
	Status       domain.MemberStatus `json:"status"`
	Role         domain.Role         `json:"role"`
	ReferralCode *string             `json:"referral_code"`
	LoansRepaid  int                 `json:"loans_repaid"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:           m.ID,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Phone:        m.Phone,
		Score:        m.Score,
		Status:       m.Status,
		Role:         m.Role,
		ReferralCode: m.ReferralCode,
		LoansRepaid:  m.LoansRepaid,
		CreatedAt:    m.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"index;not null" json:"member_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	Member    Member     `gorm:"foreignKey:MemberID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Admission
// ============================================================

// PotentialDuplicate is a parked registration. The submitted fields are
// snapshotted (password already hashed) so resolution can create the account
// without asking the registrant again. The row is kept after resolution.
type PotentialDuplicate struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	Email           string                 `gorm:"size:100;not null" json:"email"`
	Password        string                 `gorm:"size:255;not null" json:"-"`
	FirstName       string                 `gorm:"size:50;not null" json:"first_name"`
	LastName        string                 `gorm:"size:50;not null" json:"last_name"`
	Phone           string                 `gorm:"size:20;not null" json:"phone"`
	NationalID      string                 `gorm:"size:50" json:"national_id"`
	BirthDate       time.Time              `gorm:"type:date" json:"birth_date"`
	ReferralCode    *string                `gorm:"size:20" json:"referral_code"`
	MatchedMemberID uint                   `gorm:"not null;index" json:"matched_member_id"`
	Reason          string                 `gorm:"type:text;not null" json:"reason"`
	Status          domain.DuplicateStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ResolvedBy      *uint                  `json:"resolved_by"`
	ResolvedAt      *time.Time             `json:"resolved_at"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`

	MatchedMember *Member `gorm:"foreignKey:MatchedMemberID" json:"matched_member,omitempty"`
}

func (PotentialDuplicate) TableName() string {
	return "potential_duplicates"
}

// WaitingListEntry is a queued registrant. Position is unique within a
// priority tier and monotonic: entries are soft-deleted on activation so a
// retired position is never handed out again.
type WaitingListEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	MemberID  uint           `gorm:"not null;uniqueIndex" json:"member_id"`
	Priority  int            `gorm:"not null;index:idx_tier_position,unique,priority:1" json:"priority"`
	Position  int            `gorm:"not null;index:idx_tier_position,unique,priority:2" json:"position"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (WaitingListEntry) TableName() string {
	return "waiting_list_entries"
}

// CapacityPolicy is the singleton admission configuration (one row, ID=1).
// Current usage is recomputed from the live ACTIVE member count on every
// read and is intentionally not a column.
type CapacityPolicy struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	TotalCapacity        int       `gorm:"not null" json:"total_capacity"`
	AutoIncrease         bool      `gorm:"default:false" json:"auto_increase"`
	IncreaseThresholdPct int       `gorm:"default:90" json:"increase_threshold_pct"`
	IncreaseAmount       int       `gorm:"default:50" json:"increase_amount"`
	UpdatedBy            *uint     `json:"updated_by"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CapacityPolicy) TableName() string {
	return "capacity_policies"
}

// CapacityStatus DTO: policy plus the live usage
type CapacityStatus struct {
	TotalCapacity        int  `json:"total_capacity"`
	CurrentUsage         int  `json:"current_usage"`
	AvailableSlots       int  `json:"available_slots"`
	AutoIncrease         bool `json:"auto_increase"`
	IncreaseThresholdPct int  `json:"increase_threshold_pct"`
	IncreaseAmount       int  `json:"increase_amount"`
}

// ============================================================
// Loan Lifecycle
// ============================================================

// LoanApplication represents a single loan case. Fee and net amount are
// derived from the requested amount at creation time and never recomputed.
type LoanApplication struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	MemberID        uint              `gorm:"not null;index" json:"member_id"`
	Status          domain.LoanStatus `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	RequestedAmount float64           `gorm:"type:decimal(15,2);not null" json:"requested_amount"`
	FeeAmount       float64           `gorm:"type:decimal(15,2);not null" json:"fee_amount"`
	NetAmount       float64           `gorm:"type:decimal(15,2);not null" json:"net_amount"`
	Purpose         string            `gorm:"type:text" json:"purpose"`
	ApproverID      *uint             `json:"approver_id"`
	DecisionNote    *string           `gorm:"type:text" json:"decision_note"`
	ApprovedAt      *time.Time        `json:"approved_at"`
	DisbursedAt     *time.Time        `json:"disbursed_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Member       *Member       `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Approver     *Member       `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Installments []Installment `gorm:"foreignKey:LoanID" json:"installments,omitempty"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

// Installment represents one scheduled repayment of a loan. An installment
// only reaches PAYEE through an explicit staff confirmation, never from the
// proof submission alone.
type Installment struct {
	ID          uint                     `gorm:"primaryKey" json:"id"`
	LoanID      uint                     `gorm:"not null;index:idx_loan_number,unique,priority:1" json:"loan_id"`
	Number      int                      `gorm:"not null;index:idx_loan_number,unique,priority:2" json:"number"`
	DueDate     time.Time                `gorm:"type:date;not null" json:"due_date"`
	DueAmount   float64                  `gorm:"type:decimal(15,2);not null" json:"due_amount"`
	PaidAmount  float64                  `gorm:"type:decimal(15,2);default:0" json:"paid_amount"`
	PaidAt      *time.Time               `json:"paid_at"`
	Status      domain.InstallmentStatus `gorm:"size:30;not null;default:'EN_ATTENTE';index" json:"status"`
	DaysLate    int                      `gorm:"default:0" json:"days_late"`
	WarningSent bool                     `gorm:"default:false" json:"warning_sent"`
	ProofURL    *string                  `gorm:"size:255" json:"proof_url"`
	CreatedAt   time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                `gorm:"autoUpdateTime" json:"updated_at"`

	Loan *LoanApplication `gorm:"foreignKey:LoanID" json:"-"`
}

func (Installment) TableName() string {
	return "installments"
}

// ============================================================
// Uploads
// ============================================================

// UploadedFile tracks a stored image so TTL-bound purposes (selfie) can be
// purged by the cron sweep.
type UploadedFile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"not null;index" json:"member_id"`
	Purpose   string     `gorm:"size:20;not null;index" json:"purpose"` // id_card | selfie | payment_proof
	FileName  string     `gorm:"size:100;not null" json:"file_name"`
	URL       string     `gorm:"size:255;not null" json:"url"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"` // nil = permanent
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (UploadedFile) TableName() string {
	return "uploaded_files"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&RefreshToken{},
		&PotentialDuplicate{},
		&WaitingListEntry{},
		&CapacityPolicy{},
		&LoanApplication{},
		&Installment{},
		&UploadedFile{},
	)
}
