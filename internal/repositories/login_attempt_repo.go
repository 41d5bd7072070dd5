package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

type LoginAttemptRepository struct {
	db *database.DB
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Record appends one attempt row. Rows are insert-only.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (email, ip_address, user_agent, success, message)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Email, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, attempt.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

// CountRecentFailuresByIP counts failed attempts from one source address
// inside the sliding window ending now.
func (r *LoginAttemptRepository) CountRecentFailuresByIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE ip_address = $1 AND success = false AND attempted_at > NOW() - $2
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, ip, window).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}

	return count, nil
}

// ListByEmail returns the most recent attempts recorded against an email.
func (r *LoginAttemptRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, email, ip_address, user_agent, success, message, attempted_at
		FROM login_attempts
		WHERE LOWER(email) = LOWER($1)
		ORDER BY attempted_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		var a models.LoginAttempt
		err := rows.Scan(&a.ID, &a.Email, &a.IPAddress, &a.UserAgent,
			&a.Success, &a.Message, &a.AttemptedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

// DeleteOlderThan trims the audit trail past the retention horizon.
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		DELETE FROM login_attempts WHERE attempted_at < NOW() - $1
	`, retention)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old login attempts: %w", err)
	}

	return result.RowsAffected(), nil
}
