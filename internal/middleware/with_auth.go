package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// Auth role constants used by the WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleTeacher = models.RoleTeacher
	AuthRoleStudent = models.RoleStudent
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a single handler with authentication and role guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		identity, authenticated := IdentityFromContext(c)
		if requireUser && !authenticated {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role != AuthRoleAny && strings.ToLower(identity.Role) != role {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}

		return handler(c)
	}
}
