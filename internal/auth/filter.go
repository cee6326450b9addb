package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
)

// ProtectAll is the default protected path pattern of TokenFilter.
const ProtectAll = "/**"

// TokenFilter authenticates requests carrying a token in the X-Auth-Token
// header or the AuthToken cookie.
type TokenFilter struct {
	tokens  *TokenManager
	pattern string
	deps    Dependencies
}

// NewTokenFilter builds a token filter for paths matching pattern.
func NewTokenFilter(tokens *TokenManager, pattern string, deps Dependencies) *TokenFilter {
	if pattern == "" {
		pattern = ProtectAll
	}
	return &TokenFilter{tokens: tokens, pattern: pattern, deps: deps.withDefaults()}
}

func (f *TokenFilter) Name() string { return "token" }

// RequiresAuthentication is true for anonymous requests to protected paths
// that carry a token, when tokens are configured. A token whose plaintext
// expiry already passed is dropped without checking its signature.
func (f *TokenFilter) RequiresAuthentication(c *fiber.Ctx) bool {
	if CurrentIdentity(c).Authenticated() {
		return false
	}
	if !f.tokens.Enabled() || !MatchPath(f.pattern, c.Path()) {
		return false
	}

	raw, source, ok := ExtractToken(c)
	if !ok {
		return false
	}
	if PlaintextExpired(raw, f.tokens.Now()) {
		f.deps.Logger.Debug("token is in the past",
			zap.String("source", source.String()),
			zap.String("path", c.Path()),
		)
		ClearTokenCookie(c)
		return false
	}
	return true
}

// AttemptAuthentication verifies the request's token.
func (f *TokenFilter) AttemptAuthentication(c *fiber.Ctx) (*Authentication, error) {
	raw, source, ok := ExtractToken(c)
	if !ok {
		return nil, &AuthenticationError{Filter: f.Name(), Err: ErrNoCredentials}
	}

	f.deps.Logger.Debug("attempting token auth",
		zap.String("token", observability.TokenPreview(raw)),
		zap.String("source", source.String()),
	)
	a, err := f.tokens.Parse(raw)
	if err != nil {
		return nil, &AuthenticationError{Filter: f.Name(), Source: source, Err: err}
	}

	f.deps.Logger.Info("token auth succeeded",
		zap.String("login", a.Identity.Login),
		zap.Duration("expires_in", a.ExpiresIn),
	)
	return a, nil
}

// OnSuccess attaches the authentication and announces it.
func (f *TokenFilter) OnSuccess(c *fiber.Ctx, a *Authentication) error {
	SetAuthentication(c, a)
	publish(c, f.deps, events.NewEvent(events.EventAuthenticationSuccess, a.Identity.Login, events.AuthenticationPayload{
		Method: f.Name(),
		Path:   c.Path(),
		Roles:  a.Identity.Roles,
	}))
	return nil
}
