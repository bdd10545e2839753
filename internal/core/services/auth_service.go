package services

import (
	"context"
	"errors"
	"log"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/adapters/persistence/repositories"
	"solilend/internal/config"
	"solilend/internal/core/domain"
	"solilend/internal/pkg/jwt"
	"solilend/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMemberNotFound     = errors.New("member not found")
	ErrMemberNotActive    = errors.New("member account is not active")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
)

// AuthService handles registration and authentication. Registration runs the
// full admission pipeline: email gate → duplicate sentinel → admission
// controller.
type AuthService struct {
	memberRepo       repositories.MemberRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	duplicateService *DuplicateService
	admissionService *AdmissionService
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	memberRepo repositories.MemberRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	duplicateService *DuplicateService,
	admissionService *AdmissionService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		memberRepo:       memberRepo,
		refreshTokenRepo: refreshTokenRepo,
		duplicateService: duplicateService,
		admissionService: admissionService,
		cfg:              cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Email        string    `json:"email"`
	Password     string    `json:"password"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	NationalID   string    `json:"national_id"`
	BirthDate    time.Time `json:"birth_date"`
	ReferralCode *string   `json:"referral_code,omitempty"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Member       *models.MemberResponse `json:"member"`
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
}

// Register runs the registration pipeline. Exactly one of four outcomes
// happens: an ACTIVE member, a PENDING member with a waiting list entry, a
// parked potential duplicate (ErrDuplicatePending), or a hard failure with
// nothing written.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	// A second account can never share an email with an existing one,
	// regardless of role. This is an outright rejection, not a parked
	// duplicate.
	exists, err := s.memberRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	// Validate the referral before any write so a bad code fails fast
	if input.ReferralCode != nil && *input.ReferralCode != "" {
		if _, err := s.admissionService.ValidateReferral(ctx, *input.ReferralCode); err != nil {
			return nil, err
		}
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	cand := &Candidate{
		Email:          input.Email,
		HashedPassword: hashed,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Phone:          NormalizePhone(input.Phone),
		NationalID:     input.NationalID,
		BirthDate:      input.BirthDate,
		ReferralCode:   input.ReferralCode,
	}

	verdict, err := s.duplicateService.Evaluate(ctx, cand)
	if err != nil {
		return nil, err
	}
	if verdict.IsDuplicate {
		if err := s.duplicateService.Park(ctx, cand, verdict); err != nil {
			// Failing to park must not fall through to member creation
			return nil, err
		}
		return nil, ErrDuplicatePending
	}

	member, err := s.admissionService.Admit(ctx, &AdmitInput{
		Email:          cand.Email,
		HashedPassword: cand.HashedPassword,
		FirstName:      cand.FirstName,
		LastName:       cand.LastName,
		Phone:          cand.Phone,
		NationalID:     cand.NationalID,
		BirthDate:      cand.BirthDate,
		ReferralCode:   cand.ReferralCode,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, member)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member registered: %s (status: %s)", member.Email, member.Status)
	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a member
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	member, err := s.memberRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if member.Status == domain.MemberRemoved || member.Status == domain.MemberRejected {
		return nil, ErrMemberNotActive
	}

	if !password.Verify(input.Password, member.Password) {
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, member)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Member logged in: %s", member.Email)
	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Refresh rotates the refresh token and issues a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	tokenHash := password.HashToken(refreshToken)
	stored, err := s.refreshTokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if stored.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if stored.IsExpired() {
		return nil, ErrTokenExpired
	}

	member, err := s.memberRepo.GetByID(ctx, claims.MemberID)
	if err != nil {
		return nil, ErrMemberNotFound
	}
	if member.Status == domain.MemberRemoved || member.Status == domain.MemberRejected {
		return nil, ErrMemberNotActive
	}

	// Token rotation: the old refresh token dies with its first use
	if err := s.refreshTokenRepo.Revoke(ctx, stored.ID); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, member)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := password.HashToken(refreshToken)
	return s.refreshTokenRepo.RevokeByTokenHash(ctx, tokenHash)
}

// LogoutAll revokes all refresh tokens of a member
func (s *AuthService) LogoutAll(ctx context.Context, memberID uint) error {
	return s.refreshTokenRepo.RevokeAllByMemberID(ctx, memberID)
}

// GetMemberByID gets a member by ID
func (s *AuthService) GetMemberByID(ctx context.Context, memberID uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// tokenPair carries a freshly issued access/refresh pair
type tokenPair struct {
	AccessToken  string
	RefreshToken string
}

// issueTokens generates and persists a token pair for a member
func (s *AuthService) issueTokens(ctx context.Context, member *models.Member) (*tokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		member.ID,
		member.Email,
		string(member.Role),
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		member.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	stored := &models.RefreshToken{
		MemberID:  member.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	if err := s.refreshTokenRepo.Create(ctx, stored); err != nil {
		return nil, err
	}

	return &tokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
