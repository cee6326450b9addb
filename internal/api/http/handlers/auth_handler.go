package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/api/dto"
	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/config"
	"github.com/spec-kit/token-auth-service/internal/events"
)

// AuthHandler exposes the login form endpoints.
type AuthHandler struct {
	security   config.SecurityConfig
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(security config.SecurityConfig, dispatcher events.Dispatcher, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{security: security, dispatcher: dispatcher, logger: logger}
}

// LoginPage handles GET /auth/login.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": dto.LoginPageResponse{
			Action:        h.security.LoginProcessingPath,
			Method:        http.MethodPost,
			UsernameField: auth.UsernameField,
			PasswordField: auth.PasswordField,
		},
	})
}

// Success handles the end of a login, POST /auth/authenticate and
// /auth/success. The refresh filter has already written any new token.
func (h *AuthHandler) Success(c *fiber.Ctx) error {
	a, ok := auth.AuthenticationFromContext(c)
	if !ok || !a.Identity.Authenticated() {
		return c.Redirect(h.security.LoginPath, http.StatusSeeOther)
	}
	if h.security.ForwardLoginSuccess != "" {
		return c.Redirect(h.security.ForwardLoginSuccess, http.StatusSeeOther)
	}

	data := fiber.Map{"identity": dto.NewIdentityResponse(a)}
	if a.Token != "" && !a.Identity.TokenTrusted() {
		data["auth"] = dto.AuthResponse{Token: a.Token, ExpiresAt: a.ExpiresAt}
	}
	return c.JSON(fiber.Map{"data": data})
}

// Info handles GET /auth/info.
func (h *AuthHandler) Info(c *fiber.Ctx) error {
	a, _ := auth.AuthenticationFromContext(c)
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(a)})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return h.Info(c)
}

// Logout handles /auth/logout: the auth cookie is dropped and the client is
// sent to the configured logout target.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity := auth.CurrentIdentity(c)
	auth.ClearTokenCookie(c)

	if h.dispatcher != nil && identity.Authenticated() {
		if err := h.dispatcher.Publish(c.UserContext(), events.NewEvent(events.EventLogout, identity.Login, nil)); err != nil {
			h.logger.Warn("logout listener failed", zap.Error(err))
		}
	}
	return c.Redirect(h.security.ForwardLogoutFinish, http.StatusFound)
}
