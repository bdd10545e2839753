package repositories

import (
	"context"
	"errors"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// CreateWithAdmission runs the admission decision and member creation as one
// atomic read-modify-write. The capacity policy row is locked for the span of
// the transaction so two concurrent registrations at one free slot cannot
// both see it; a PENDING member and its waiting list entry commit together or
// not at all. Returns the waiting position, 0 when admitted ACTIVE.
func (r *memberRepository) CreateWithAdmission(ctx context.Context, member *models.Member, priority int) (int, error) {
	position := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var policy models.CapacityPolicy
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&policy, capacityPolicyID).Error; err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.Member{}).
			Where("role = ? AND status = ?", domain.RoleClient, domain.MemberActive).
			Count(&active).Error; err != nil {
			return err
		}

		if active < int64(policy.TotalCapacity) {
			now := time.Now()
			member.Status = domain.MemberActive
			member.ActivatedAt = &now
			return tx.Create(member).Error
		}

		member.Status = domain.MemberPending
		member.ActivatedAt = nil
		if err := tx.Create(member).Error; err != nil {
			return err
		}

		pos, err := nextTierPosition(tx, priority)
		if err != nil {
			return err
		}
		position = pos

		entry := &models.WaitingListEntry{
			MemberID: member.ID,
			Priority: priority,
			Position: pos,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByEmail gets a member by email (any status, email is unique across roles)
func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByReferralCode gets a member by their issued referral code
func (r *memberRepository) GetByReferralCode(ctx context.Context, code string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Update updates a member
func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// UpdateStatus updates the member status, optionally stamping the activation date
func (r *memberRepository) UpdateStatus(ctx context.Context, id uint, status domain.MemberStatus, activatedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if activatedAt != nil {
		updates["activated_at"] = *activatedAt
	}
	res := r.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetRole updates the member role
func (r *memberRepository) SetRole(ctx context.Context, id uint, role domain.Role) error {
	res := r.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List lists members by role with pagination, newest first
func (r *memberRepository) List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Member{}).Where("role = ?", role)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&members).Error; err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// ListStaff lists all staff accounts (moderators, admins, super admins)
func (r *memberRepository) ListStaff(ctx context.Context) ([]*models.Member, error) {
	var members []*models.Member
	err := r.db.WithContext(ctx).
		Where("role IN ?", []domain.Role{domain.RoleModerator, domain.RoleAdmin, domain.RoleSuperAdmin}).
		Order("id ASC").
		Find(&members).Error
	return members, err
}

// ExistsByEmail checks if an email is already taken
func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CountActive counts ACTIVE clients. This is the live capacity usage: the
// capacity policy never stores a usage value, and staff accounts never
// occupy a slot.
func (r *memberRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("role = ? AND status = ?", domain.RoleClient, domain.MemberActive).
		Count(&count).Error
	return count, err
}

// CountFilleuls counts members referred by the given referrer
func (r *memberRepository) CountFilleuls(ctx context.Context, referrerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	return count, err
}

// CountByRole counts members holding the given role, excluding removed accounts
func (r *memberRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("role = ? AND status <> ?", role, domain.MemberRemoved).
		Count(&count).Error
	return count, err
}

// FindByNameAndBirthDate finds a member with the same first+last name
// (case-insensitive) and birth date. Returns nil when no match exists.
func (r *memberRepository) FindByNameAndBirthDate(ctx context.Context, firstName, lastName string, birthDate time.Time) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?) AND birth_date = ?",
			firstName, lastName, birthDate.Format("2006-01-02")).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByPhone finds a member by normalized phone. Returns nil when no match exists.
func (r *memberRepository) FindByPhone(ctx context.Context, phone string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByNationalID finds a member by national ID. Returns nil when no match exists.
func (r *memberRepository) FindByNationalID(ctx context.Context, nationalID string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("LOWER(national_id) = LOWER(?)", nationalID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
