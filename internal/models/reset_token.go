package models

import (
	"time"
)

// ResetToken is a single-use capability to change an account's password
// without knowing the old one. At most one unconsumed, unexpired token exists
// per account: issuing a new one supersedes (consumes) all prior unconsumed
// tokens for that account.
type ResetToken struct {
	ID          string
	AccountID   string
	Token       string // 32 chars, letters+digits
	Consumed    bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RequestIP   string
	RequestUser string // requester user agent
}

// IsExpired checks if the token has expired
func (t *ResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeemable reports whether the token can still be redeemed.
func (t *ResetToken) Redeemable(now time.Time) bool {
	return !t.Consumed && !t.IsExpired(now)
}
