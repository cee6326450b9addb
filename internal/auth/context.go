package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-auth-service/internal/domain"
)

const authenticationKey = "auth_authentication"

// SetAuthentication attaches a to the request.
func SetAuthentication(c *fiber.Ctx, a *Authentication) {
	c.Locals(authenticationKey, a)
}

// AuthenticationFromContext retrieves the request's authentication.
func AuthenticationFromContext(c *fiber.Ctx) (*Authentication, bool) {
	val := c.Locals(authenticationKey)
	if val == nil {
		return nil, false
	}
	a, ok := val.(*Authentication)
	return a, ok && a != nil
}

// CurrentIdentity returns the request's identity, or the anonymous one.
func CurrentIdentity(c *fiber.Ctx) domain.Identity {
	if a, ok := AuthenticationFromContext(c); ok {
		return a.Identity
	}
	return domain.Anonymous()
}
