package services

import (
	"context"
	"errors"
	"log"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/core/domain"
	"solilend/internal/pkg/password"

	"gorm.io/gorm"
)

// Member administration errors
var (
	ErrNotAClient     = errors.New("member is not a client")
	ErrNotStaff       = errors.New("member is not a staff account")
	ErrInvalidRole    = errors.New("invalid role")
	ErrLastSuperAdmin = errors.New("cannot remove or demote the last super admin")
	ErrSelfDemotion   = errors.New("cannot change or remove your own account")
)

// MemberService covers staff-side member administration: client listing and
// removal, staff account management, and role changes.
type MemberService struct {
	memberRepo       repositories.MemberRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	admissionService *AdmissionService
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repositories.MemberRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	admissionService *AdmissionService,
) *MemberService {
	return &MemberService{
		memberRepo:       memberRepo,
		refreshTokenRepo: refreshTokenRepo,
		admissionService: admissionService,
	}
}

// GetProfile returns a member by ID
func (s *MemberService) GetProfile(ctx context.Context, memberID uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// ListClients returns client accounts with pagination
func (s *MemberService) ListClients(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	return s.memberRepo.List(ctx, domain.RoleClient, offset, limit)
}

// CreateClientInput represents staff-created client input
type CreateClientInput struct {
	Email      string    `json:"email"`
	Password   string    `json:"password"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"national_id"`
	BirthDate  time.Time `json:"birth_date"`
}

// CreateClient creates a client account directly as ACTIVE, bypassing the
// waiting list. The duplicate sentinel and capacity gate do not apply: staff
// creation is itself the manual review.
func (s *MemberService) CreateClient(ctx context.Context, input *CreateClientInput) (*models.Member, error) {
	exists, err := s.memberRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	member := &models.Member{
		Email:       input.Email,
		Password:    hashed,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Phone:       NormalizePhone(input.Phone),
		NationalID:  input.NationalID,
		BirthDate:   input.BirthDate,
		Status:      domain.MemberActive,
		Role:        domain.RoleClient,
		ActivatedAt: &now,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Client created by staff: %s", member.Email)
	return member, nil
}

// RemoveClient flips a client to REMOVED and revokes their sessions. The row
// is kept for audit.
func (s *MemberService) RemoveClient(ctx context.Context, clientID uint) error {
	member, err := s.memberRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if member.Role != domain.RoleClient {
		return ErrNotAClient
	}
	if member.Status == domain.MemberRemoved {
		return ErrMemberNotFound
	}

	if err := s.memberRepo.UpdateStatus(ctx, clientID, domain.MemberRemoved, nil); err != nil {
		return err
	}
	if err := s.refreshTokenRepo.RevokeAllByMemberID(ctx, clientID); err != nil {
		log.Printf("⚠️ Failed to revoke sessions of removed member %d: %v", clientID, err)
	}

	log.Printf("🗑️ Client %d removed", clientID)
	return nil
}

// CreateStaffInput represents staff account creation input
type CreateStaffInput struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
}

// CreateStaff creates a MODERATOR, ADMIN, or SUPER_ADMIN account. Staff
// accounts are ACTIVE immediately and never occupy a capacity slot.
func (s *MemberService) CreateStaff(ctx context.Context, input *CreateStaffInput) (*models.Member, error) {
	if !input.Role.IsStaff() {
		return nil, ErrInvalidRole
	}

	exists, err := s.memberRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	member := &models.Member{
		Email:       input.Email,
		Password:    hashed,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Phone:       NormalizePhone(input.Phone),
		Status:      domain.MemberActive,
		Role:        input.Role,
		ActivatedAt: &now,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Staff account created: %s (%s)", member.Email, member.Role)
	return member, nil
}

// ListStaff returns all staff accounts
func (s *MemberService) ListStaff(ctx context.Context) ([]*models.Member, error) {
	return s.memberRepo.ListStaff(ctx)
}

// ChangeRole changes a staff member's role. Demoting the last SUPER_ADMIN is
// refused so the system can never lock itself out.
func (s *MemberService) ChangeRole(ctx context.Context, actorID, staffID uint, newRole domain.Role) (*models.Member, error) {
	if !newRole.IsStaff() {
		return nil, ErrInvalidRole
	}
	if actorID == staffID {
		return nil, ErrSelfDemotion
	}

	member, err := s.memberRepo.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if !member.Role.IsStaff() {
		return nil, ErrNotStaff
	}

	if member.Role == domain.RoleSuperAdmin && newRole != domain.RoleSuperAdmin {
		if err := s.guardLastSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.memberRepo.SetRole(ctx, staffID, newRole); err != nil {
		return nil, err
	}

	log.Printf("🔄 Role of member %d changed to %s by member %d", staffID, newRole, actorID)
	return s.memberRepo.GetByID(ctx, staffID)
}

// DeleteStaff flips a staff account to REMOVED. Removing the last
// SUPER_ADMIN is refused.
func (s *MemberService) DeleteStaff(ctx context.Context, actorID, staffID uint) error {
	if actorID == staffID {
		return ErrSelfDemotion
	}

	member, err := s.memberRepo.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if !member.Role.IsStaff() {
		return ErrNotStaff
	}
	if member.Status == domain.MemberRemoved {
		return ErrMemberNotFound
	}

	if member.Role == domain.RoleSuperAdmin {
		if err := s.guardLastSuperAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.memberRepo.UpdateStatus(ctx, staffID, domain.MemberRemoved, nil); err != nil {
		return err
	}
	if err := s.refreshTokenRepo.RevokeAllByMemberID(ctx, staffID); err != nil {
		log.Printf("⚠️ Failed to revoke sessions of removed staff %d: %v", staffID, err)
	}

	log.Printf("🗑️ Staff account %d removed by member %d", staffID, actorID)
	return nil
}

// guardLastSuperAdmin refuses the operation when only one SUPER_ADMIN is left
func (s *MemberService) guardLastSuperAdmin(ctx context.Context) error {
	count, err := s.memberRepo.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}
