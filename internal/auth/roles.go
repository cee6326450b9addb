package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/token-auth-service/pkg/util/errorutil"
)

// RequireAnyRole ensures the caller holds one of roles. Anonymous callers
// get 401 so clients know to log in; authenticated ones get 403.
func RequireAnyRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := CheckAnyRole(c, roles...); err != nil {
			return err
		}
		return c.Next()
	}
}

// CheckAnyRole is the non-middleware form of RequireAnyRole.
func CheckAnyRole(c *fiber.Ctx, roles ...string) error {
	identity := CurrentIdentity(c)
	if !identity.Authenticated() {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(roles) > 0 && !identity.HasAnyRole(roles...) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// RequireAuthenticated ensures the caller is not anonymous.
func RequireAuthenticated() fiber.Handler {
	return RequireAnyRole()
}
