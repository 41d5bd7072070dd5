package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
)

const accountColumns = `id, email, password_hash, first_name, last_name, role, active,
	phone, city, address, country, failed_login_attempts, locked_until, last_login_at,
	created_at, updated_at`

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var phone, city, address, country *string
	var lockedUntil, lastLoginAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.Email, &account.PasswordHash,
		&account.FirstName, &account.LastName, &account.Role, &account.Active,
		&phone, &city, &address, &country,
		&account.FailedLoginAttempts, &lockedUntil, &lastLoginAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if phone != nil {
		account.Phone = *phone
	}
	if city != nil {
		account.City = *city
	}
	if address != nil {
		account.Address = *address
	}
	if country != nil {
		account.Country = *country
	}
	account.LockedUntil = lockedUntil
	account.LastLoginAt = lastLoginAt

	return &account, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) pool() *pgxpool.Pool { return r.db.Pool }

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool().QueryRow(ctx, query, id))
}

// GetByEmail looks up an account by email, case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccountRow(r.pool().QueryRow(ctx, query, email))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

// Search filters accounts by name, email, city or country.
func (r *AccountRepository) Search(ctx context.Context, term string, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
			OR city ILIKE $1 OR country ILIKE $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool().Query(ctx, query, "%"+term+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}

	return scanAccountRows(rows)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, active,
			phone, city, address, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool().QueryRow(ctx, query,
		account.ID, account.Email, account.PasswordHash,
		account.FirstName, account.LastName, account.Role, account.Active,
		nullable(account.Phone), nullable(account.City),
		nullable(account.Address), nullable(account.Country),
	))
}

func (r *AccountRepository) Update(ctx context.Context, id string, account *models.Account) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET email = $1, first_name = $2, last_name = $3, role = $4, active = $5,
			phone = $6, city = $7, address = $8, country = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool().QueryRow(ctx, query,
		account.Email, account.FirstName, account.LastName, account.Role, account.Active,
		nullable(account.Phone), nullable(account.City),
		nullable(account.Address), nullable(account.Country),
		id,
	))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool().Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failed-login counter and arms the lockout
// once the threshold is reached. The read-modify-write happens inside one
// UPDATE so concurrent failures never lose an increment, and the lockout
// timestamp comes from the database clock.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1,
			locked_until = CASE
				WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3
				ELSE locked_until
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool().QueryRow(ctx, query, id, threshold, lockout))
}

// RecordLoginSuccess resets the failure counter, clears any lockout and
// stamps the last successful login.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0,
			locked_until = NULL,
			last_login_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool().QueryRow(ctx, query, id))
}

// UpdatePassword swaps the password hash and clears lockout state. A
// successful credential change is a deliberate lockout recovery path.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $1,
			failed_login_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool().Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
