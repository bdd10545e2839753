package domain

// Role represents a member role in the system
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleModerator  Role = "MODERATOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// IsStaff reports whether the role belongs to a staff account
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin || r == RoleSuperAdmin
}

// MemberStatus represents the lifecycle status of a member account
type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberPending  MemberStatus = "PENDING"  // on the waiting list
	MemberRejected MemberStatus = "REJECTED" // duplicate resolution rejected the registration
	MemberRemoved  MemberStatus = "REMOVED"  // soft delete, record kept for audit
)

// LoanStatus represents the state of a loan application
type LoanStatus string

const (
	LoanPending   LoanStatus = "PENDING"
	LoanApproved  LoanStatus = "APPROVED"
	LoanDisbursed LoanStatus = "DISBURSED"
	LoanRepaid    LoanStatus = "REPAID"
	LoanRejected  LoanStatus = "REJECTED"
	LoanDefault   LoanStatus = "DEFAULT"
)

// IsTerminal reports whether no further transition is allowed from the status
func (s LoanStatus) IsTerminal() bool {
	return s == LoanRepaid || s == LoanRejected || s == LoanDefault
}

// InstallmentStatus represents the state of a single scheduled repayment
type InstallmentStatus string

const (
	InstallmentPending      InstallmentStatus = "EN_ATTENTE"
	InstallmentConfirmation InstallmentStatus = "EN_ATTENTE_CONFIRMATION" // proof submitted, awaiting staff
	InstallmentPaid         InstallmentStatus = "PAYEE"
	InstallmentLate         InstallmentStatus = "EN_RETARD"
	InstallmentUnpaid       InstallmentStatus = "IMPAYEE"
)

// DuplicateStatus represents resolution state of a parked registration
type DuplicateStatus string

const (
	DuplicatePending  DuplicateStatus = "pending"
	DuplicateApproved DuplicateStatus = "approved"
	DuplicateRejected DuplicateStatus = "rejected"
)

// Waiting list priority tiers. Tier 1 (referred registrants) is always
// served before tier 2 regardless of position.
const (
	PriorityReferral = 1
	PriorityStandard = 2
)

// MaxFilleuls is the maximum number of members one referrer may sponsor
const MaxFilleuls = 3

// FeeRate is the flat fee applied to the requested amount at creation.
// Fee and net amount are derived once and never recomputed.
const FeeRate = 0.10

// Installment schedule shape for an approved loan
const (
	InstallmentCount    = 2
	InstallmentSpanDays = 30
)

// Borrowing limit parameters: limit = BaseLoanLimit + score*LimitPerPoint
const (
	BaseLoanLimit = 10000.0
	LimitPerPoint = 5000.0
)

// DefaultAfterDaysLate is how many consecutive late days an installment may
// accumulate before it becomes IMPAYEE and the loan escalates to DEFAULT.
const DefaultAfterDaysLate = 30

// BorrowingLimit returns the maximum requestable amount for a trust score
func BorrowingLimit(score int) float64 {
	if score < 0 {
		score = 0
	}
	return BaseLoanLimit + float64(score)*LimitPerPoint
}
