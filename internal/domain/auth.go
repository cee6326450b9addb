package domain

import "strings"

// RolePrefix is prepended to every role name carried by an Identity.
const RolePrefix = "ROLE_"

// Well-known roles.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"

	// RoleAuthToken marks an identity reconstructed from a verified token.
	RoleAuthToken = "ROLE_AUTH_TOKEN"
	// RoleAuthSystem marks the bootstrapped system identity.
	RoleAuthSystem = "ROLE_AUTH_SYSTEM"
	// RoleAuthPassword marks an identity established by a password login.
	// It must never survive a round trip through a token.
	RoleAuthPassword = "ROLE_AUTH_PASSWORD"
)

// AnonymousLogin is the login reported for unauthenticated requests.
const AnonymousLogin = "anonymousUser"

// Identity is the authenticated (or anonymous) caller of a request.
type Identity struct {
	Login     string
	Roles     []string
	Anonymous bool
}

// NewIdentity builds an identity with normalized role names.
func NewIdentity(login string, roles ...string) Identity {
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		name := RoleName(role)
		if name == "" || containsRole(normalized, name) {
			continue
		}
		normalized = append(normalized, name)
	}
	return Identity{Login: login, Roles: normalized}
}

// Anonymous returns the identity attached to requests without credentials.
func Anonymous() Identity {
	return Identity{Login: AnonymousLogin, Anonymous: true}
}

// RoleName trims, upper-cases and prefixes a configured role name.
// Names that already carry the prefix are only trimmed and upper-cased.
func RoleName(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}

// HasRole reports whether the identity holds the given role.
func (i Identity) HasRole(role string) bool {
	return containsRole(i.Roles, role)
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// Authenticated is true for any non-anonymous identity with a login.
func (i Identity) Authenticated() bool {
	return !i.Anonymous && i.Login != ""
}

// TokenTrusted reports whether the identity was derived from a verified token.
func (i Identity) TokenTrusted() bool {
	return i.HasRole(RoleAuthToken)
}

// WithRole returns a copy of the identity with role appended, if missing.
func (i Identity) WithRole(role string) Identity {
	if i.HasRole(role) {
		return i
	}
	roles := make([]string, 0, len(i.Roles)+1)
	roles = append(roles, i.Roles...)
	roles = append(roles, role)
	return Identity{Login: i.Login, Roles: roles, Anonymous: i.Anonymous}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
