package services

import (
	"context"
	"time"

	"github.com/numisma/numisma/internal/models"
)

// AccountRepository defines the storage operations the services need.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, limit, offset int) ([]*models.Account, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, id string, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, id string) error
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockout time.Duration) (*models.Account, error)
	RecordLoginSuccess(ctx context.Context, id string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// LoginAttemptRepository records and queries the append-only attempt trail.
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresByIP(ctx context.Context, ip string, window time.Duration) (int, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error)
}

// ResetTokenRepository manages single-use password reset tokens.
type ResetTokenRepository interface {
	Issue(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error)
	GetRedeemable(ctx context.Context, token string) (*models.ResetToken, error)
	Redeem(ctx context.Context, tokenID, accountID, passwordHash string) error
}

// RequestMeta carries the client-facing facts of an HTTP request into the
// service layer for audit and throttling.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
