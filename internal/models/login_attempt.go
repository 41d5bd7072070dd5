package models

import "time"

// LoginAttempt is one row of the append-only authentication audit trail.
// Rows reference the attempted email, not an account id, so they survive
// account deletion and record attempts against nonexistent accounts.
// Rows are never updated after insert.
type LoginAttempt struct {
	ID          int64
	Email       string
	IPAddress   string
	UserAgent   string
	Success     bool
	Message     string
	AttemptedAt time.Time
}
