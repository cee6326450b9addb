package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/events"
	"github.com/spec-kit/token-auth-service/internal/observability"
)

// RefreshFilter hands a fresh token to clients that completed a login and
// hold no token, or only an expired one. It is mounted on the login
// success routes only.
type RefreshFilter struct {
	tokens *TokenManager
	deps   Dependencies
}

// NewRefreshFilter builds a refresh filter.
func NewRefreshFilter(tokens *TokenManager, deps Dependencies) *RefreshFilter {
	return &RefreshFilter{tokens: tokens, deps: deps.withDefaults()}
}

func (f *RefreshFilter) Name() string { return "refresh" }

// RequiresAuthentication is true for authenticated identities that did not
// come from a token and whose client holds no usable token. Token-derived
// identities never trigger a re-issue.
func (f *RefreshFilter) RequiresAuthentication(c *fiber.Ctx) bool {
	if !f.tokens.Enabled() {
		return false
	}
	identity := CurrentIdentity(c)
	if !identity.Authenticated() || identity.TokenTrusted() {
		return false
	}

	headerToken := c.Get(HeaderName)
	cookieToken := c.Cookies(CookieName)
	if headerToken == "" && cookieToken == "" {
		return true
	}
	now := f.tokens.Now()
	return PlaintextExpired(headerToken, now) || PlaintextExpired(cookieToken, now)
}

// AttemptAuthentication returns the authentication established upstream.
func (f *RefreshFilter) AttemptAuthentication(c *fiber.Ctx) (*Authentication, error) {
	a, ok := AuthenticationFromContext(c)
	if !ok {
		return nil, &AuthenticationError{Filter: f.Name(), Err: ErrNoCredentials}
	}
	return a, nil
}

// OnSuccess mints a token and writes it to the header and cookie.
func (f *RefreshFilter) OnSuccess(c *fiber.Ctx, a *Authentication) error {
	token, expiresAt, err := f.tokens.Issue(a.Identity)
	if err != nil {
		return err
	}
	WriteToken(c, token)
	SetAuthentication(c, &Authentication{
		Identity:  a.Identity,
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: expiresAt.Sub(f.tokens.Now()),
	})

	f.deps.Metrics.RecordTokenIssued()
	f.deps.Logger.Info("issued auth token",
		zap.String("login", a.Identity.Login),
		zap.String("token", observability.TokenPreview(token)),
		zap.Time("expires_at", expiresAt),
	)
	publish(c, f.deps, events.NewEvent(events.EventTokenIssued, a.Identity.Login, events.TokenIssuedPayload{
		ExpiresAt: expiresAt,
	}))
	return nil
}
