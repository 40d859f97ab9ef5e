package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/questionnaire-api/internal/dto"
)

const identityLocalKey = "identity"

// TokenVerifier resolves a session token into the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (dto.Identity, error)
}

// Session attaches the caller identity when the request carries a valid session
// token, either as a bearer header or as the session cookie. Requests without a
// usable token continue anonymously; role guards decide whether that is allowed.
func Session(verifier TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c, cookieName)
		if token == "" || verifier == nil {
			return c.Next()
		}

		identity, err := verifier.VerifyToken(c.UserContext(), token)
		if err != nil {
			if c.Cookies(cookieName) != "" {
				c.ClearCookie(cookieName)
			}
			return c.Next()
		}

		SetIdentity(c, identity)
		return c.Next()
	}
}

// TokenFromRequest extracts the raw session token from the Authorization header
// or, failing that, from the named cookie.
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const bearer = "bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		if token := strings.TrimSpace(authorization[len(bearer):]); token != "" {
			return token
		}
	}

	if cookieName == "" {
		return ""
	}
	return strings.TrimSpace(c.Cookies(cookieName))
}

// SetIdentity binds identity to the request.
func SetIdentity(c *fiber.Ctx, identity dto.Identity) {
	c.Locals(identityLocalKey, identity)
	c.Locals("user_id", identity.UserID)
	c.Locals("user_role", identity.Role)
}

// IdentityFromContext returns the identity bound to the request, if any.
func IdentityFromContext(c *fiber.Ctx) (dto.Identity, bool) {
	identity, ok := c.Locals(identityLocalKey).(dto.Identity)
	if !ok || identity.UserID == 0 {
		return dto.Identity{}, false
	}
	return identity, true
}
