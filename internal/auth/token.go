package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/token-auth-service/internal/domain"
)

const (
	// DefaultTokenTTL is used when no session timeout is configured.
	DefaultTokenTTL = 7200 * time.Second
	// DefaultClockSkew is the tolerance applied to the signed expiry.
	DefaultClockSkew = 5 * time.Second

	expirySeparator = ":"
	roleSeparator   = ", "
)

// Authentication is the outcome of a successful authentication.
type Authentication struct {
	Identity domain.Identity
	// Token is the raw client token; empty for password logins that were
	// not issued one yet.
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// tokenClaims is the signed payload. aud carries the role list as a single
// ", "-joined string and shadows the embedded audience array.
type tokenClaims struct {
	Audience string `json:"aud,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies client tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	skew   time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClockSkew overrides the allowed expiry tolerance.
func WithClockSkew(skew time.Duration) TokenOption {
	return func(tm *TokenManager) {
		if skew >= 0 {
			tm.skew = skew
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager. An empty secret yields a manager
// that reports itself disabled and refuses to issue or verify.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		skew:   DefaultClockSkew,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// EncodeToken signs identity into a token valid for ttl.
func EncodeToken(secret string, identity domain.Identity, ttl time.Duration) (string, error) {
	token, _, err := NewTokenManager(secret, ttl).IssueFor(identity, ttl)
	return token, err
}

// DecodeToken verifies token and rebuilds the identity it carries.
func DecodeToken(secret, token string) (*Authentication, error) {
	return NewTokenManager(secret, 0).Parse(token)
}

// Enabled reports whether a signing secret is configured.
func (tm *TokenManager) Enabled() bool {
	return tm != nil && len(tm.secret) > 0
}

// TTL is the lifetime of tokens issued by Issue.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Now returns the manager's current time.
func (tm *TokenManager) Now() time.Time {
	return tm.now()
}

// Issue signs a token for identity with the configured TTL.
func (tm *TokenManager) Issue(identity domain.Identity) (string, time.Time, error) {
	return tm.IssueFor(identity, tm.ttl)
}

// IssueFor signs a token for identity valid for ttl. The plaintext suffix
// and the signed exp claim come from the same expiry.
func (tm *TokenManager) IssueFor(identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	if !tm.Enabled() {
		return "", time.Time{}, ErrNotConfigured
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &tokenClaims{
		Audience: strings.Join(identity.Roles, roleSeparator),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed + expirySeparator + strconv.FormatInt(expiresAt.UnixMilli(), 10), expiresAt, nil
}

// Parse validates token and returns the authentication it carries. Every
// rejection wraps exactly one of ErrTokenMalformed, ErrTokenBadSignature or
// ErrTokenExpired.
func (tm *TokenManager) Parse(token string) (*Authentication, error) {
	if !tm.Enabled() {
		return nil, ErrNotConfigured
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(stripExpiry(token), claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tm.skew),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	expiresAt := claims.ExpiresAt.Time
	return &Authentication{
		Identity:  domain.Identity{Login: claims.Subject, Roles: tokenRoles(claims.Audience)},
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: expiresAt.Sub(tm.now()),
	}, nil
}

// classify maps a jwt parse error onto the three token failure kinds.
// The signature is checked before the claims, so a forged token never
// reports as expired.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}

// tokenRoles splits the audience into roles, drops the password trust role
// and adds the token trust role.
func tokenRoles(audience string) []string {
	fields := strings.FieldsFunc(audience, func(r rune) bool {
		return r == ',' || r == ' '
	})
	identity := domain.Identity{Roles: make([]string, 0, len(fields)+1)}
	for _, role := range fields {
		if role == domain.RoleAuthPassword {
			continue
		}
		identity = identity.WithRole(role)
	}
	return identity.WithRole(domain.RoleAuthToken).Roles
}

// stripExpiry removes the plaintext expiry suffix.
func stripExpiry(token string) string {
	if idx := strings.LastIndex(token, expirySeparator); idx > 0 {
		return token[:idx]
	}
	return token
}

// PlaintextExpiry reads the unauthenticated expiry suffix of a token. It is
// only good for a cheap pre-check; the signed claim decides acceptance.
func PlaintextExpiry(token string) (time.Time, bool) {
	idx := strings.LastIndex(token, expirySeparator)
	if idx <= 0 {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(token[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// PlaintextExpired reports whether token carries a suffix in the past.
func PlaintextExpired(token string, now time.Time) bool {
	exp, ok := PlaintextExpiry(token)
	return ok && exp.Before(now)
}
