package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/token-auth-service/internal/domain"
	"github.com/spec-kit/token-auth-service/internal/events"
)

// DefaultSystemTokenTTL bounds the lifetime of tokens minted for outbound
// service calls.
const DefaultSystemTokenTTL = time.Minute

// SystemIdentityProvider holds the privileged identity used for calls this
// service makes on its own behalf. The identity is set at most once.
type SystemIdentityProvider struct {
	tokens   *TokenManager
	login    string
	roles    []string
	ttl      time.Duration
	logger   *zap.Logger
	identity atomic.Pointer[domain.Identity]
}

// NewSystemIdentityProvider prepares a provider for the configured account.
// Nothing is bootstrapped until Bootstrap runs.
func NewSystemIdentityProvider(tokens *TokenManager, login string, roles []string, logger *zap.Logger) *SystemIdentityProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemIdentityProvider{
		tokens: tokens,
		login:  login,
		roles:  append([]string(nil), roles...),
		ttl:    DefaultSystemTokenTTL,
		logger: logger,
	}
}

// Bootstrap builds the system identity unless one exists already. It
// reports whether this call created it.
func (p *SystemIdentityProvider) Bootstrap() bool {
	if p.login == "" || p.identity.Load() != nil {
		return false
	}
	identity := domain.NewIdentity(p.login, p.roles...)
	if !p.identity.CompareAndSwap(nil, &identity) {
		return false
	}
	p.logger.Info("system identity bootstrapped",
		zap.String("login", identity.Login),
		zap.Strings("roles", identity.Roles),
	)
	return true
}

// HandleApplicationReady bootstraps on the application ready event.
func (p *SystemIdentityProvider) HandleApplicationReady(_ context.Context, _ events.Event) error {
	p.Bootstrap()
	return nil
}

// SystemAuthority returns the system identity with the system trust role.
func (p *SystemIdentityProvider) SystemAuthority() (domain.Identity, error) {
	identity := p.identity.Load()
	if identity == nil {
		return domain.Identity{}, fmt.Errorf("%w: no system authority defined", ErrNotConfigured)
	}
	return identity.WithRole(domain.RoleAuthSystem), nil
}

// MintToken issues a short-lived token for the system identity.
func (p *SystemIdentityProvider) MintToken() (string, error) {
	identity, err := p.SystemAuthority()
	if err != nil {
		return "", err
	}
	token, _, err := p.tokens.IssueFor(identity, p.ttl)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Transport wraps base so every outgoing request carries a freshly minted
// system token. Tokens are never reused across requests.
func (p *SystemIdentityProvider) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &systemTransport{provider: p, base: base}
}

// Client returns a copy of base whose transport stamps system tokens.
func (p *SystemIdentityProvider) Client(base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = p.Transport(client.Transport)
	return client
}

type systemTransport struct {
	provider *SystemIdentityProvider
	base     http.RoundTripper
}

func (t *systemTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.provider.MintToken()
	if err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	out.Header.Set(HeaderName, token)
	t.provider.logger.Info("added system auth token", zap.String("url", req.URL.Redacted()))
	return t.base.RoundTrip(out)
}
