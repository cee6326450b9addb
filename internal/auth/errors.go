package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when the token feature is used without a
	// signing secret or before the system identity was bootstrapped.
	ErrNotConfigured = errors.New("token authentication not configured")

	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrTokenExpired      = errors.New("token expired")

	// ErrNoCredentials is returned when a protected request carries no token.
	ErrNoCredentials = errors.New("no cookie nor header found for auth")
	// ErrBadCredentials is returned by password logins that do not match.
	ErrBadCredentials = errors.New("bad credentials")
)

// AuthenticationError is a rejected authentication attempt. Source records
// where the rejected token came from so the pipeline can clear it.
type AuthenticationError struct {
	Filter string
	Source TokenSource
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed (source %s): %v", e.Filter, e.Source, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// failureReason names the rejection kind for metrics and events.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "error"
	}
}

// isCredentialFailure reports whether err is one of the rejection kinds the
// pipeline handles locally.
func isCredentialFailure(err error) bool {
	switch failureReason(err) {
	case "error", "not_configured":
		return false
	default:
		return true
	}
}
