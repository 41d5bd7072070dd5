package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/config"
	"github.com/numisma/numisma/internal/models"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

// AuthService implements the login gate: per-source throttling, per-account
// lockout, credential verification and session token issuance. All failure
// paths converge on models.ErrInvalidCredentials unless the caller is
// entitled to know more (lockout, throttling).
type AuthService struct {
	accounts    AccountRepository
	attempts    LoginAttemptRepository
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	cfg         config.AuthConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	// dummyHash is compared against when the email matches no account, so
	// the missing-account path costs one bcrypt verify like every other.
	dummyHash string
}

func NewAuthService(
	accounts AccountRepository,
	attempts LoginAttemptRepository,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	cfg config.AuthConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) (*AuthService, error) {
	dummyHash, err := pkgauth.HashPassword("timing-equalizer-not-a-credential-1A", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		accounts:    accounts,
		attempts:    attempts,
		tm:          tm,
		timing:      timing,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
		dummyHash:   dummyHash,
	}, nil
}

// AccountResponse represents an account in HTTP responses. The password hash
// and lockout internals never leave the service layer.
type AccountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	Phone       string     `json:"phone,omitempty"`
	City        string     `json:"city,omitempty"`
	Address     string     `json:"address,omitempty"`
	Country     string     `json:"country,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// AuthResponse is returned from a successful login.
type AuthResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	Account     *AccountResponse `json:"account"`
}

func accountModelToResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Role:        account.Role,
		Active:      account.Active,
		Phone:       account.Phone,
		City:        account.City,
		Address:     account.Address,
		Country:     account.Country,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   account.UpdatedAt.Format(time.RFC3339),
	}
}

// recordAttempt appends to the attempt trail. Trail writes are best-effort:
// a failed insert must not block authentication.
func (s *AuthService) recordAttempt(ctx context.Context, email string, meta RequestMeta, success bool, message string) {
	err := s.attempts.Record(ctx, &models.LoginAttempt{
		Email:     email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   success,
		Message:   message,
	})
	if err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}

// Login authenticates an email/password pair and returns a session token.
//
// Order matters: the per-source throttle runs before any credential work so
// a throttled source learns nothing about the email it probed, and the
// attempt row is written on every outcome.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*AuthResponse, error) {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.timing.WaitFrom(start)
		return nil, models.ErrInvalidCredentials
	}

	failures, err := s.attempts.CountRecentFailuresByIP(ctx, meta.IPAddress, s.cfg.RateLimitWindow)
	if err != nil {
		s.logger.Error("failed to check login rate limit", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if failures >= s.cfg.RateLimitMaxFailures {
		s.recordAttempt(ctx, email, meta, false, "rate limit exceeded")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     meta.IPAddress,
			FailureReason: "rate_limited",
		})
		s.timing.WaitFrom(start)
		return nil, models.ErrRateLimited
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a bcrypt compare so this path is not measurably faster
			// than a wrong password against a real account.
			_ = pkgauth.ComparePassword(s.dummyHash, password)
			s.recordAttempt(ctx, email, meta, false, "invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     meta.IPAddress,
				UserAgent:     meta.UserAgent,
				FailureReason: "invalid_credentials",
			})
			s.timing.WaitFrom(start)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if account.IsLocked(time.Now()) {
		s.recordAttempt(ctx, email, meta, false, "account locked")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			IPAddress:     meta.IPAddress,
			FailureReason: "account_locked",
		})
		s.timing.WaitFrom(start)
		return nil, &models.AccountLockedError{Until: *account.LockedUntil}
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.recordAttempt(ctx, email, meta, false, "invalid credentials")

		updated, ferr := s.accounts.RecordLoginFailure(ctx, account.ID, s.cfg.LockoutThreshold, s.cfg.LockoutDuration)
		if ferr != nil {
			s.logger.Error("failed to record login failure",
				slog.String("account_id", account.ID), slog.Any("error", ferr))
		} else if updated.LockedUntil != nil && updated.FailedLoginAttempts >= s.cfg.LockoutThreshold {
			s.logger.Warn("account locked after repeated failures",
				slog.String("account_id", account.ID),
				slog.Int("failed_attempts", updated.FailedLoginAttempts))
		}

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			FailureReason: "invalid_credentials",
		})
		s.timing.WaitFrom(start)
		return nil, models.ErrInvalidCredentials
	}

	// The credential check is complete; a deactivated account fails only
	// here, so a wrong password still exercises the counter above.
	if !account.Active {
		s.recordAttempt(ctx, email, meta, false, "account inactive")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			IPAddress:     meta.IPAddress,
			FailureReason: "account_inactive",
		})
		s.timing.WaitFrom(start)
		return nil, models.ErrAccountInactive
	}

	account, err = s.accounts.RecordLoginSuccess(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to record login success",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAttempt(ctx, email, meta, true, "login successful")

	accessToken, err := s.tm.Issue(account)
	if err != nil {
		s.logger.Error("failed to issue session token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.cfg.SessionTokenTTL.Seconds()),
		Account:     accountModelToResponse(account),
	}, nil
}

// CurrentAccount returns the fresh profile for an authenticated account.
func (s *AuthService) CurrentAccount(ctx context.Context, accountID string) (*AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return accountModelToResponse(account), nil
}

// ChangePassword rotates a password for an authenticated account. The
// current password is re-verified even though the session is valid, and the
// new password must differ from the old one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, meta RequestMeta) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get account", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(account.ID, meta.IPAddress, false)
		return models.ErrCurrentPasswordInvalid
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	if pkgauth.ComparePassword(account.PasswordHash, newPassword) == nil {
		return models.ErrPasswordUnchanged
	}

	hash, err := pkgauth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("failed to update password",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(account.ID, meta.IPAddress, true)
	return nil
}
