package dto

import (
	"time"

	"github.com/spec-kit/token-auth-service/internal/auth"
	"github.com/spec-kit/token-auth-service/internal/domain"
)

// IdentityResponse describes the caller of a request.
type IdentityResponse struct {
	Login              string   `json:"login"`
	Roles              []string `json:"roles"`
	Anonymous          bool     `json:"anonymous"`
	TokenAuthenticated bool     `json:"token_authenticated"`
	ExpiresInMs        int64    `json:"expires_in_ms,omitempty"`
}

// AuthResponse carries a token handed out by the login flow.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginPageResponse tells clients how to submit credentials.
type LoginPageResponse struct {
	Action        string `json:"action"`
	Method        string `json:"method"`
	UsernameField string `json:"username_field"`
	PasswordField string `json:"password_field"`
}

// NewIdentityResponse renders the request's authentication, if any.
func NewIdentityResponse(a *auth.Authentication) IdentityResponse {
	if a == nil {
		return IdentityResponse{Login: domain.AnonymousLogin, Roles: []string{}, Anonymous: true}
	}
	roles := a.Identity.Roles
	if roles == nil {
		roles = []string{}
	}
	return IdentityResponse{
		Login:              a.Identity.Login,
		Roles:              roles,
		Anonymous:          a.Identity.Anonymous,
		TokenAuthenticated: a.Identity.TokenTrusted(),
		ExpiresInMs:        a.ExpiresIn.Milliseconds(),
	}
}
