package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/numisma/numisma/internal/database"
	"github.com/numisma/numisma/internal/models"
	"github.com/numisma/numisma/internal/repositories"
	"github.com/numisma/numisma/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("numisma"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql connection, so go through the pgx stdlib adapter
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"login_attempts",
		"reset_tokens",
		"banknotes",
		"characteristics",
		"countries",
		"accounts",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from the database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.AccountRepository,
	*repositories.ResetTokenRepository,
	*repositories.LoginAttemptRepository,
	*repositories.CountryRepository,
	*repositories.BanknoteRepository,
	*repositories.CharacteristicRepository,
) {
	return repositories.NewAccountRepository(db),
		repositories.NewResetTokenRepository(db),
		repositories.NewLoginAttemptRepository(db),
		repositories.NewCountryRepository(db),
		repositories.NewBanknoteRepository(db),
		repositories.NewCharacteristicRepository(db)
}

var (
	seedHashOnce sync.Once
	seedHash     string
)

// seedPasswordHash hashes SeedPassword once. Bcrypt at cost 12 is slow enough
// that hashing per seeded account would dominate test runtime.
func seedPasswordHash() string {
	seedHashOnce.Do(func() {
		hash, err := auth.HashPassword(SeedPassword, 12)
		if err != nil {
			panic(fmt.Sprintf("failed to hash seed password: %v", err))
		}
		seedHash = hash
	})
	return seedHash
}

// SeedAccount inserts a test account with the shared SeedPassword hash
func SeedAccount(ctx context.Context, pool *pgxpool.Pool, email, role string, active bool) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, email, password_hash, first_name, last_name, role, active,
			failed_login_attempts, created_at, updated_at
	`

	var account models.Account
	err := pool.QueryRow(ctx, query,
		uuid.New().String(), email, seedPasswordHash(), "Test", "Curator", role, active,
	).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Role,
		&account.Active,
		&account.FailedLoginAttempts,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return &account, nil
}

// SeedResetToken creates a live reset token for an account
func SeedResetToken(ctx context.Context, pool *pgxpool.Pool, accountID string) (string, error) {
	token, err := auth.GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	query := `
		INSERT INTO reset_tokens (id, account_id, token, expires_at)
		VALUES ($1, $2, $3, NOW() + INTERVAL '24 hours')
		RETURNING token
	`

	var inserted string
	if err := pool.QueryRow(ctx, query, uuid.New().String(), accountID, token).Scan(&inserted); err != nil {
		return "", fmt.Errorf("failed to insert reset token: %w", err)
	}

	return inserted, nil
}

// SeedExpiredResetToken creates a reset token that expired an hour ago
func SeedExpiredResetToken(ctx context.Context, pool *pgxpool.Pool, accountID string) (string, error) {
	token, err := auth.GenerateResetToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	query := `
		INSERT INTO reset_tokens (id, account_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, NOW() - INTERVAL '25 hours', NOW() - INTERVAL '1 hour')
		RETURNING token
	`

	var inserted string
	if err := pool.QueryRow(ctx, query, uuid.New().String(), accountID, token).Scan(&inserted); err != nil {
		return "", fmt.Errorf("failed to insert expired reset token: %w", err)
	}

	return inserted, nil
}

// SeedLoginFailures inserts n failed login attempts from one source address
func SeedLoginFailures(ctx context.Context, pool *pgxpool.Pool, email, ip string, n int) error {
	query := `
		INSERT INTO login_attempts (email, ip_address, user_agent, success, message)
		VALUES ($1, $2, 'integration-test', false, 'invalid_credentials')
	`

	for i := 0; i < n; i++ {
		if _, err := pool.Exec(ctx, query, email, ip); err != nil {
			return fmt.Errorf("failed to insert login attempt: %w", err)
		}
	}

	return nil
}
