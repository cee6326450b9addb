package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is an account allowed to sign in through the login form.
type User struct {
	ID           string
	Login        string
	PasswordHash string
	Roles        []string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the identity a successful password login establishes.
func (u *User) Identity() Identity {
	return NewIdentity(u.Login, u.Roles...).WithRole(RoleAuthPassword)
}
