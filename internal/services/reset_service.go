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

// EmailSender delivers password reset email. Implemented by the SES client
// in production and by a mock in tests.
type EmailSender interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// ResetService implements the forgotten-password flow: issue a single-use
// token, verify it, redeem it for a new password. The request endpoint never
// reveals whether an email has an account.
type ResetService struct {
	accounts    AccountRepository
	tokens      ResetTokenRepository
	email       EmailSender
	timing      *auth.TimingDelay
	cfg         config.AuthConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewResetService(
	accounts AccountRepository,
	tokens ResetTokenRepository,
	email EmailSender,
	timing *auth.TimingDelay,
	cfg config.AuthConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *ResetService {
	return &ResetService{
		accounts:    accounts,
		tokens:      tokens,
		email:       email,
		timing:      timing,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Request issues a reset token for the email if an active account exists.
// An unknown email returns nil: the caller's response is identical whether or
// not the email matched an account, and the timing pad hides the difference
// in work done. An inactive account is a visible error, it cannot log in
// regardless, so there is nothing to protect.
func (s *ResetService) Request(ctx context.Context, email string, meta RequestMeta) error {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.timing.WaitFrom(start)
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.timing.WaitFrom(start)
			return nil
		}
		s.logger.Error("failed to get account by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !account.Active {
		s.logger.Info("reset requested for inactive account",
			slog.String("account_id", account.ID))
		s.timing.WaitFrom(start)
		return models.ErrAccountInactive
	}

	tokenString, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	issued, err := s.tokens.Issue(ctx, &models.ResetToken{
		AccountID:   account.ID,
		Token:       tokenString,
		ExpiresAt:   time.Now().Add(s.cfg.ResetTokenTTL),
		RequestIP:   meta.IPAddress,
		RequestUser: meta.UserAgent,
	})
	if err != nil {
		s.logger.Error("failed to issue reset token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Delivery happens off the request path so SES latency or an outage
	// cannot skew the uniform response time.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.email.SendPasswordReset(sendCtx, account.Email, issued.Token, issued.ExpiresAt); err != nil {
			s.logger.Error("failed to send reset email",
				slog.String("account_id", account.ID), slog.Any("error", err))
		}
	}()

	s.auditLogger.LogAccountAction("password_reset_requested", account.ID, meta.IPAddress, nil)

	s.timing.WaitFrom(start)
	return nil
}

// Verify reports whether a token is currently redeemable without consuming
// it. The front end calls this before showing the new-password form.
func (s *ResetService) Verify(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return models.ErrTokenInvalid
	}

	_, err := s.tokens.GetRedeemable(ctx, tokenString)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTokenInvalid
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// Redeem consumes a token and installs the new password, clearing any
// lockout in the same transaction. Consumed, expired and unknown tokens all
// fail identically.
func (s *ResetService) Redeem(ctx context.Context, tokenString, newPassword string, meta RequestMeta) error {
	if tokenString == "" {
		return models.ErrTokenInvalid
	}

	token, err := s.tokens.GetRedeemable(ctx, tokenString)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrTokenInvalid
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.tokens.Redeem(ctx, token.ID, token.AccountID, hash); err != nil {
		if errors.Is(err, models.ErrTokenInvalid) {
			// Lost the race against another redemption of the same token.
			return models.ErrTokenInvalid
		}
		s.logger.Error("failed to redeem reset token",
			slog.String("account_id", token.AccountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogPasswordChange(token.AccountID, meta.IPAddress, true)
	s.logger.Info("password reset redeemed", slog.String("account_id", token.AccountID))

	return nil
}
