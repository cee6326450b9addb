package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/events"
)

// Form fields posted by the login page.
const (
	UsernameField = "username"
	PasswordField = "password"
)

// CredentialVerifier checks a login/password pair. It returns
// ErrBadCredentials when they do not match.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, login, password string) (domain.Identity, error)
}

// PasswordFilter authenticates form logins posted to the login processing
// path. The resulting identity carries the password trust role.
type PasswordFilter struct {
	verifier CredentialVerifier
	path     string
	deps     Dependencies
}

// NewPasswordFilter builds a form login filter for path.
func NewPasswordFilter(verifier CredentialVerifier, path string, deps Dependencies) *PasswordFilter {
	return &PasswordFilter{verifier: verifier, path: path, deps: deps.withDefaults()}
}

func (f *PasswordFilter) Name() string { return "password" }

// RequiresAuthentication matches POSTs to the login processing path.
func (f *PasswordFilter) RequiresAuthentication(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodPost && c.Path() == f.path
}

// AttemptAuthentication checks the posted credentials.
func (f *PasswordFilter) AttemptAuthentication(c *fiber.Ctx) (*Authentication, error) {
	login := c.FormValue(UsernameField)
	password := c.FormValue(PasswordField)
	if login == "" || password == "" {
		return nil, &AuthenticationError{Filter: f.Name(), Err: ErrNoCredentials}
	}

	identity, err := f.verifier.Authenticate(c.UserContext(), login, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			return nil, &AuthenticationError{Filter: f.Name(), Err: err}
		}
		return nil, err
	}

	f.deps.Logger.Info("password auth succeeded", zap.String("login", identity.Login))
	return &Authentication{Identity: identity}, nil
}

// OnSuccess attaches the authentication and announces it.
func (f *PasswordFilter) OnSuccess(c *fiber.Ctx, a *Authentication) error {
	SetAuthentication(c, a)
	publish(c, f.deps, events.NewEvent(events.EventAuthenticationSuccess, a.Identity.Login, events.AuthenticationPayload{
		Method: f.Name(),
		Path:   c.Path(),
		Roles:  a.Identity.Roles,
	}))
	return nil
}
