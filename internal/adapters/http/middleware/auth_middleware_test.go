package middleware

import (
	"testing"

	"solilend/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

var allCapabilities = []Capability{
	CapViewLoans, CapViewWaitlist, CapViewDuplicates, CapViewClients,
	CapDecideLoans, CapConfirmPayments, CapManageWaitlist, CapReviewDuplicates,
	CapManageClients, CapManageCapacity, CapManageStaff,
}

var mutatingCapabilities = []Capability{
	CapDecideLoans, CapConfirmPayments, CapManageWaitlist, CapReviewDuplicates,
	CapManageClients, CapManageCapacity, CapManageStaff,
}

func TestHasCapability(t *testing.T) {
	t.Run("Clients Hold No Capabilities", func(t *testing.T) {
		for _, cap := range allCapabilities {
			assert.False(t, HasCapability(domain.RoleClient, cap), string(cap))
		}
	})

	t.Run("Moderator Is Read Only", func(t *testing.T) {
		assert.True(t, HasCapability(domain.RoleModerator, CapViewLoans))
		assert.True(t, HasCapability(domain.RoleModerator, CapViewWaitlist))
		assert.True(t, HasCapability(domain.RoleModerator, CapViewDuplicates))
		assert.True(t, HasCapability(domain.RoleModerator, CapViewClients))

		for _, cap := range mutatingCapabilities {
			assert.False(t, HasCapability(domain.RoleModerator, cap), string(cap))
		}
	})

	t.Run("Admin Decides But Cannot Manage Staff", func(t *testing.T) {
		assert.True(t, HasCapability(domain.RoleAdmin, CapDecideLoans))
		assert.True(t, HasCapability(domain.RoleAdmin, CapConfirmPayments))
		assert.True(t, HasCapability(domain.RoleAdmin, CapManageWaitlist))
		assert.True(t, HasCapability(domain.RoleAdmin, CapReviewDuplicates))
		assert.True(t, HasCapability(domain.RoleAdmin, CapManageCapacity))
		assert.True(t, HasCapability(domain.RoleAdmin, CapManageClients))
		assert.False(t, HasCapability(domain.RoleAdmin, CapManageStaff))
	})

	t.Run("Super Admin Holds Everything", func(t *testing.T) {
		for _, cap := range allCapabilities {
			assert.True(t, HasCapability(domain.RoleSuperAdmin, cap), string(cap))
		}
	})

	t.Run("Unknown Role Is Refused", func(t *testing.T) {
		assert.False(t, HasCapability(domain.Role("GUEST"), CapViewLoans))
	})
}
