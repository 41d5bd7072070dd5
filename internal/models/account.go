package models

import (
	"time"
)

// Account roles, ordered: RoleAdmin < RoleSuperAdmin.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ValidRole reports whether a role string is one of the known tiers.
// Authorization predicates fail closed on anything else.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Account is an administrative user of the collection backend. Accounts are
// provisioned by super admins, never self-registered.
type Account struct {
	ID           string
	Email        string // unique, compared case-insensitively
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string // "admin" or "super_admin"
	Active       bool

	// Optional contact details
	Phone   string
	City    string
	Address string
	Country string

	FailedLoginAttempts int
	LockedUntil         *time.Time // set when the lockout threshold is reached
	LastLoginAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocked reports whether the account lockout is still in effect.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}
