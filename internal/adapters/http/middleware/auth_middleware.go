package middleware

import (
	"strings"

	"solilend/internal/config"
	"solilend/internal/core/domain"
	"solilend/internal/pkg/jwt"
	"solilend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Capability names every privileged operation once, so route setup and the
// role table cannot drift apart.
type Capability string

const (
	// Read capabilities: list and view records.
	CapViewLoans      Capability = "view_loans"
	CapViewWaitlist   Capability = "view_waitlist"
	CapViewDuplicates Capability = "view_duplicates"
	CapViewClients    Capability = "view_clients"

	// Mutate capabilities: decisions and record management.
	CapDecideLoans      Capability = "decide_loans"
	CapConfirmPayments  Capability = "confirm_payments"
	CapManageWaitlist   Capability = "manage_waitlist"
	CapReviewDuplicates Capability = "review_duplicates"
	CapManageClients    Capability = "manage_clients"
	CapManageCapacity   Capability = "manage_capacity"
	CapManageStaff      Capability = "manage_staff"
)

// capabilities maps each role to the operations it may perform. The check is
// a set lookup, never an ordering comparison between roles. MODERATOR holds
// read capabilities only: decisions, confirmations, and record management
// stay with ADMIN and SUPER_ADMIN.
var capabilities = map[domain.Role]map[Capability]bool{
	domain.RoleModerator: {
		CapViewLoans:      true,
		CapViewWaitlist:   true,
		CapViewDuplicates: true,
		CapViewClients:    true,
	},
	domain.RoleAdmin: {
		CapViewLoans:        true,
		CapViewWaitlist:     true,
		CapViewDuplicates:   true,
		CapViewClients:      true,
		CapDecideLoans:      true,
		CapConfirmPayments:  true,
		CapManageWaitlist:   true,
		CapReviewDuplicates: true,
		CapManageClients:    true,
		CapManageCapacity:   true,
	},
	domain.RoleSuperAdmin: {
		CapViewLoans:        true,
		CapViewWaitlist:     true,
		CapViewDuplicates:   true,
		CapViewClients:      true,
		CapDecideLoans:      true,
		CapConfirmPayments:  true,
		CapManageWaitlist:   true,
		CapReviewDuplicates: true,
		CapManageClients:    true,
		CapManageCapacity:   true,
		CapManageStaff:      true,
	},
}

// HasCapability reports whether a role may perform an operation
func HasCapability(role domain.Role, cap Capability) bool {
	return capabilities[role][cap]
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accessToken string

		// 1. Try to get token from cookie first
		accessToken = c.Cookies("access_token")

		// 2. If not in cookie, try Authorization header
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// 3. No token found
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 4. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if err == jwt.ErrTokenExpired {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 5. Set member info in context
		c.Locals("memberID", claims.MemberID)
		c.Locals("memberEmail", claims.Email)
		c.Locals("memberRole", domain.Role(claims.Role))

		return c.Next()
	}
}

// RequireCapability creates capability-based authorization middleware
func RequireCapability(cap Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("memberRole").(domain.Role)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		if !HasCapability(role, cap) {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		return c.Next()
	}
}
