package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

const resetTokenColumns = `id, account_id, token, consumed, expires_at, created_at,
	request_ip, request_user_agent`

type ResetTokenRepository struct {
	db *database.DB
}

func NewResetTokenRepository(db *database.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func scanResetTokenRow(scanner rowScanner) (*models.ResetToken, error) {
	var token models.ResetToken
	var requestIP, requestUA *string

	err := scanner.Scan(
		&token.ID, &token.AccountID, &token.Token, &token.Consumed,
		&token.ExpiresAt, &token.CreatedAt, &requestIP, &requestUA,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if requestIP != nil {
		token.RequestIP = *requestIP
	}
	if requestUA != nil {
		token.RequestUser = *requestUA
	}

	return &token, nil
}

// Issue consumes every outstanding token for the account and inserts a fresh
// one, in one transaction. Older tokens become unredeemable the moment a new
// one exists, so at most one token per account is ever live.
func (r *ResetTokenRepository) Issue(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
	token.ID = uuid.New().String()

	var issued *models.ResetToken

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE reset_tokens
			SET consumed = true
			WHERE account_id = $1 AND consumed = false
		`, token.AccountID)
		if err != nil {
			return fmt.Errorf("failed to supersede prior tokens: %w", err)
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO reset_tokens (id, account_id, token, expires_at, request_ip, request_user_agent)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+resetTokenColumns,
			token.ID, token.AccountID, token.Token, token.ExpiresAt,
			nullable(token.RequestIP), nullable(token.RequestUser),
		)

		issued, err = scanResetTokenRow(row)
		return err
	})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// GetRedeemable returns the token only if it is unconsumed and unexpired.
// Expiry is checked against the database clock.
func (r *ResetTokenRepository) GetRedeemable(ctx context.Context, token string) (*models.ResetToken, error) {
	query := `SELECT ` + resetTokenColumns + ` FROM reset_tokens
		WHERE token = $1 AND consumed = false AND expires_at > NOW()`

	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, query, token))
}

// Redeem marks the token consumed and installs the new password hash in one
// transaction, also clearing the account's failure counter and lockout. The
// consumed guard in the first UPDATE makes redemption single-use even under
// concurrent submissions of the same token.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenID, accountID, passwordHash string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE reset_tokens
			SET consumed = true
			WHERE id = $1 AND consumed = false AND expires_at > NOW()
		`, tokenID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrTokenInvalid
		}

		result, err = tx.Exec(ctx, `
			UPDATE accounts
			SET password_hash = $1,
				failed_login_attempts = 0,
				locked_until = NULL,
				updated_at = NOW()
			WHERE id = $2
		`, passwordHash, accountID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		return nil
	})
}

// PurgeExpired removes tokens that can never be redeemed again.
func (r *ResetTokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		DELETE FROM reset_tokens
		WHERE consumed = true OR expires_at < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
