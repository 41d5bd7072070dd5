package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/config"
	"github.com/numisma/numisma/internal/models"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

const testPassword = "Correct-Horse-1"

var (
	testHashOnce sync.Once
	testHash     string
)

// hashedTestPassword hashes the shared fixture password once per test run.
func hashedTestPassword(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		hash, err := pkgauth.HashPassword(testPassword, pkgauth.DefaultBcryptCost)
		if err != nil {
			t.Fatalf("failed to hash fixture password: %v", err)
		}
		testHash = hash
	})
	return testHash
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "test-secret-key-for-tokens",
		SessionTokenTTL:      30 * time.Minute,
		BcryptCost:           12,
		LockoutThreshold:     5,
		LockoutDuration:      1 * time.Hour,
		RateLimitWindow:      1 * time.Hour,
		RateLimitMaxFailures: 20,
		ResetTokenTTL:        24 * time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T, accounts *MockAccountRepository, attempts *MockLoginAttemptRepository) *AuthService {
	t.Helper()

	logger := discardLogger()
	tm := auth.NewTokenManager("test-secret-key-for-tokens", 30*time.Minute)
	timing := auth.NewTimingDelay(auth.TimingConfig{}) // no padding in unit tests

	svc, err := NewAuthService(accounts, attempts, tm, timing, testAuthConfig(), logger, pkglogger.NewAuditLogger(logger))
	require.NoError(t, err)
	return svc
}

func fixtureAccount(t *testing.T) *models.Account {
	return &models.Account{
		ID:           "11111111-1111-1111-1111-111111111111",
		Email:        "curator@example.com",
		PasswordHash: hashedTestPassword(t),
		FirstName:    "Ada",
		LastName:     "Curator",
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestLogin_Success(t *testing.T) {
	account := fixtureAccount(t)

	var successRecorded bool
	var attemptRows []*models.LoginAttempt

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			assert.Equal(t, "curator@example.com", email)
			return account, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.Account, error) {
			successRecorded = true
			now := time.Now()
			updated := *account
			updated.FailedLoginAttempts = 0
			updated.LockedUntil = nil
			updated.LastLoginAt = &now
			return &updated, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			attemptRows = append(attemptRows, attempt)
			return nil
		},
	}

	svc := newTestAuthService(t, accounts, attempts)

	resp, err := svc.Login(context.Background(), " Curator@Example.com ", testPassword, RequestMeta{IPAddress: "203.0.113.9"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int((30 * time.Minute).Seconds()), resp.ExpiresIn)
	assert.Equal(t, account.Email, resp.Account.Email)
	assert.True(t, successRecorded)

	require.Len(t, attemptRows, 1)
	assert.True(t, attemptRows[0].Success)
	assert.Equal(t, "curator@example.com", attemptRows[0].Email)
	assert.Equal(t, "203.0.113.9", attemptRows[0].IPAddress)
}

func TestLogin_UnknownEmail(t *testing.T) {
	var attemptRows []*models.LoginAttempt

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}
	attempts := &MockLoginAttemptRepository{
		RecordFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			attemptRows = append(attemptRows, attempt)
			return nil
		},
	}

	svc := newTestAuthService(t, accounts, attempts)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever1A", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.Len(t, attemptRows, 1)
	assert.False(t, attemptRows[0].Success)
}

func TestLogin_WrongPassword_IncrementsCounter(t *testing.T) {
	account := fixtureAccount(t)

	var failureRecorded bool

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error) {
			failureRecorded = true
			assert.Equal(t, account.ID, id)
			assert.Equal(t, 5, threshold)
			assert.Equal(t, 1*time.Hour, lockout)

			updated := *account
			updated.FailedLoginAttempts = 1
			return &updated, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	_, err := svc.Login(context.Background(), account.Email, "Wrong-Password-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, failureRecorded)
}

func TestLogin_LockedAccount(t *testing.T) {
	account := fixtureAccount(t)
	lockedUntil := time.Now().Add(30 * time.Minute)
	account.LockedUntil = &lockedUntil
	account.FailedLoginAttempts = 5

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error) {
			t.Fatal("locked account must not reach the failure counter")
			return nil, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	// Correct password is still rejected while the lockout is live.
	_, err := svc.Login(context.Background(), account.Email, testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountLocked)

	// The rejection carries the expiry so the transport layer can say when
	// to retry.
	var lockErr *models.AccountLockedError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, lockedUntil, lockErr.Until)
}

func TestLogin_ExpiredLockoutAdmitsAccount(t *testing.T) {
	account := fixtureAccount(t)
	lockedUntil := time.Now().Add(-1 * time.Minute)
	account.LockedUntil = &lockedUntil
	account.FailedLoginAttempts = 5

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.Account, error) {
			updated := *account
			updated.FailedLoginAttempts = 0
			updated.LockedUntil = nil
			return &updated, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	resp, err := svc.Login(context.Background(), account.Email, testPassword, RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLogin_InactiveAccount(t *testing.T) {
	account := fixtureAccount(t)
	account.Active = false

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	_, err := svc.Login(context.Background(), account.Email, testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountInactive)
}

// A wrong password against an inactive account runs the full credential
// check, so the failure counter still advances and the caller only sees the
// generic rejection.
func TestLogin_InactiveAccountWrongPassword(t *testing.T) {
	account := fixtureAccount(t)
	account.Active = false

	failureRecorded := false
	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error) {
			failureRecorded = true
			updated := *account
			updated.FailedLoginAttempts = 1
			return &updated, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	_, err := svc.Login(context.Background(), account.Email, "Wrong-Password-9", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, failureRecorded)
}

func TestLogin_RateLimitedBeforeCredentialCheck(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			t.Fatal("rate-limited source must not reach the account lookup")
			return nil, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		CountRecentFailuresByIPFunc: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			assert.Equal(t, "203.0.113.9", ip)
			assert.Equal(t, 1*time.Hour, window)
			return 20, nil
		},
	}

	svc := newTestAuthService(t, accounts, attempts)

	_, err := svc.Login(context.Background(), "curator@example.com", testPassword, RequestMeta{IPAddress: "203.0.113.9"})
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestLogin_BelowRateLimitProceeds(t *testing.T) {
	account := fixtureAccount(t)

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		CountRecentFailuresByIPFunc: func(ctx context.Context, ip string, window time.Duration) (int, error) {
			return 19, nil
		},
	}

	svc := newTestAuthService(t, accounts, attempts)

	_, err := svc.Login(context.Background(), account.Email, testPassword, RequestMeta{IPAddress: "203.0.113.9"})
	assert.NoError(t, err)
}

func TestLogin_EmptyCredentials(t *testing.T) {
	svc := newTestAuthService(t, &MockAccountRepository{}, &MockLoginAttemptRepository{})

	_, err := svc.Login(context.Background(), "", "", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	account := fixtureAccount(t)

	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	err := svc.ChangePassword(context.Background(), account.ID, "Not-The-Password-1", "Brand-New-Pass-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrCurrentPasswordInvalid)
}

func TestChangePassword_WeakNewPassword(t *testing.T) {
	account := fixtureAccount(t)

	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			t.Fatal("weak password must not be stored")
			return nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	err := svc.ChangePassword(context.Background(), account.ID, testPassword, "alllowercase1", RequestMeta{})

	var ruleErr *pkgauth.PasswordRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, pkgauth.RuleUppercase, ruleErr.Rule)
}

func TestChangePassword_UnchangedPassword(t *testing.T) {
	account := fixtureAccount(t)

	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	err := svc.ChangePassword(context.Background(), account.ID, testPassword, testPassword, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrPasswordUnchanged)
}

func TestChangePassword_Success(t *testing.T) {
	account := fixtureAccount(t)

	var storedHash string
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return account, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			assert.Equal(t, account.ID, id)
			storedHash = passwordHash
			return nil
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	err := svc.ChangePassword(context.Background(), account.ID, testPassword, "Brand-New-Pass-1", RequestMeta{})
	require.NoError(t, err)

	require.NotEmpty(t, storedHash)
	assert.NoError(t, pkgauth.ComparePassword(storedHash, "Brand-New-Pass-1"))
}

func TestCurrentAccount_DeletedAccount(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(t, accounts, &MockLoginAttemptRepository{})

	_, err := svc.CurrentAccount(context.Background(), "missing-id")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
