package domain

import (
	"strings"
	"time"
)

// Role enumerates the access levels a user can hold.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// User is the identity record. PasswordHash is argon2id encoded and must
// never be serialized outward; PublicUser is the outward projection.
type User struct {
	ID                  string
	Name                string
	Email               string // stored lowercase, trimmed
	PasswordHash        string
	Role                Role
	IsActive            bool
	IsEmailVerified     bool
	MFAEnabled          bool
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	AccountLocked       bool
	AccountLockedUntil  *time.Time
	PasswordLastChanged time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PublicUser is the externally visible view of a User.
type PublicUser struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	IsEmailVerified bool       `json:"is_email_verified"`
	MFAEnabled      bool       `json:"mfa_enabled"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

// Public projects the user into its outward shape, dropping the credential
// and lockout bookkeeping fields.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		MFAEnabled:      u.MFAEnabled,
		LastLogin:       u.LastLogin,
	}
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
