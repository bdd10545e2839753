package services

import (
	"context"
	"testing"
	"time"

	"solilend/internal/adapters/persistence/models"
	"solilend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMemberService_RemoveClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes And Revokes Sessions", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		tokenRepo := new(MockRefreshTokenRepo)
		svc := NewMemberService(memberRepo, tokenRepo, nil)

		memberRepo.On("GetByID", ctx, uint(5)).Return(&models.Member{ID: 5, Role: domain.RoleClient, Status: domain.MemberActive}, nil)
		memberRepo.On("UpdateStatus", ctx, uint(5), domain.MemberRemoved, (*time.Time)(nil)).Return(nil)
		tokenRepo.On("RevokeAllByMemberID", ctx, uint(5)).Return(nil)

		err := svc.RemoveClient(ctx, 5)
		assert.NoError(t, err)
		tokenRepo.AssertCalled(t, "RevokeAllByMemberID", ctx, uint(5))
	})

	t.Run("Staff Account Is Not A Client", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(9)).Return(&models.Member{ID: 9, Role: domain.RoleAdmin, Status: domain.MemberActive}, nil)

		err := svc.RemoveClient(ctx, 9)
		assert.ErrorIs(t, err, ErrNotAClient)
	})

	t.Run("Already Removed Is Not Found", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(5)).Return(&models.Member{ID: 5, Role: domain.RoleClient, Status: domain.MemberRemoved}, nil)

		err := svc.RemoveClient(ctx, 5)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestMemberService_CreateStaff(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects Client Role", func(t *testing.T) {
		svc := NewMemberService(new(MockMemberRepo), new(MockRefreshTokenRepo), nil)

		_, err := svc.CreateStaff(ctx, &CreateStaffInput{Email: "x@y.z", Password: "secret123", Role: domain.RoleClient})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("Creates Active Moderator", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("ExistsByEmail", ctx, "mod@example.com").Return(false, nil)
		memberRepo.On("Create", ctx, mock.AnythingOfType("*models.Member")).Return(nil)

		member, err := svc.CreateStaff(ctx, &CreateStaffInput{
			Email:     "mod@example.com",
			Password:  "secret123",
			FirstName: "Mona",
			LastName:  "Durand",
			Role:      domain.RoleModerator,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RoleModerator, member.Role)
		assert.Equal(t, domain.MemberActive, member.Status)
		assert.NotEqual(t, "secret123", member.Password)
	})
}

func TestMemberService_ChangeRole(t *testing.T) {
	ctx := context.Background()

	t.Run("Self Change Refused", func(t *testing.T) {
		svc := NewMemberService(new(MockMemberRepo), new(MockRefreshTokenRepo), nil)

		_, err := svc.ChangeRole(ctx, 9, 9, domain.RoleAdmin)
		assert.ErrorIs(t, err, ErrSelfDemotion)
	})

	t.Run("Demoting Last Super Admin Refused", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(2)).Return(&models.Member{ID: 2, Role: domain.RoleSuperAdmin}, nil)
		memberRepo.On("CountByRole", ctx, domain.RoleSuperAdmin).Return(int64(1), nil)

		_, err := svc.ChangeRole(ctx, 9, 2, domain.RoleAdmin)
		assert.ErrorIs(t, err, ErrLastSuperAdmin)
	})

	t.Run("Demotion Allowed With A Second Super Admin", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(2)).Return(&models.Member{ID: 2, Role: domain.RoleSuperAdmin}, nil)
		memberRepo.On("CountByRole", ctx, domain.RoleSuperAdmin).Return(int64(2), nil)
		memberRepo.On("SetRole", ctx, uint(2), domain.RoleAdmin).Return(nil)

		_, err := svc.ChangeRole(ctx, 9, 2, domain.RoleAdmin)
		assert.NoError(t, err)
	})

	t.Run("Client Cannot Be Promoted Here", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(5)).Return(&models.Member{ID: 5, Role: domain.RoleClient}, nil)

		_, err := svc.ChangeRole(ctx, 9, 5, domain.RoleAdmin)
		assert.ErrorIs(t, err, ErrNotStaff)
	})
}

func TestMemberService_DeleteStaff(t *testing.T) {
	ctx := context.Background()

	t.Run("Last Super Admin Protected", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := NewMemberService(memberRepo, new(MockRefreshTokenRepo), nil)

		memberRepo.On("GetByID", ctx, uint(2)).Return(&models.Member{ID: 2, Role: domain.RoleSuperAdmin, Status: domain.MemberActive}, nil)
		memberRepo.On("CountByRole", ctx, domain.RoleSuperAdmin).Return(int64(1), nil)

		err := svc.DeleteStaff(ctx, 9, 2)
		assert.ErrorIs(t, err, ErrLastSuperAdmin)
	})

	t.Run("Self Delete Refused", func(t *testing.T) {
		svc := NewMemberService(new(MockMemberRepo), new(MockRefreshTokenRepo), nil)

		err := svc.DeleteStaff(ctx, 9, 9)
		assert.ErrorIs(t, err, ErrSelfDemotion)
	})
}
