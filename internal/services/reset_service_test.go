package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numisma/numisma/internal/auth"
	"github.com/numisma/numisma/internal/models"
	pkgauth "github.com/numisma/numisma/pkg/auth"
	pkglogger "github.com/numisma/numisma/pkg/logger"
)

func newTestResetService(t *testing.T, accounts *MockAccountRepository, tokens *MockResetTokenRepository, sender *MockEmailSender) *ResetService {
	t.Helper()

	logger := discardLogger()
	timing := auth.NewTimingDelay(auth.TimingConfig{})

	return NewResetService(accounts, tokens, sender, timing, testAuthConfig(), logger, pkglogger.NewAuditLogger(logger))
}

func TestResetRequest_UnknownEmailReturnsNil(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}
	tokens := &MockResetTokenRepository{
		IssueFunc: func(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
			t.Fatal("no token should be issued for an unknown email")
			return nil, nil
		},
	}

	svc := newTestResetService(t, accounts, tokens, &MockEmailSender{})

	err := svc.Request(context.Background(), "ghost@example.com", RequestMeta{})
	assert.NoError(t, err)
}

func TestResetRequest_InactiveAccountIsVisibleError(t *testing.T) {
	account := fixtureAccount(t)
	account.Active = false

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}
	tokens := &MockResetTokenRepository{
		IssueFunc: func(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
			t.Fatal("no token should be issued for an inactive account")
			return nil, nil
		},
	}

	svc := newTestResetService(t, accounts, tokens, &MockEmailSender{})

	err := svc.Request(context.Background(), account.Email, RequestMeta{})
	assert.ErrorIs(t, err, models.ErrAccountInactive)
}

func TestResetRequest_IssuesTokenAndSendsEmail(t *testing.T) {
	account := fixtureAccount(t)

	accounts := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}

	var issued *models.ResetToken
	tokens := &MockResetTokenRepository{
		IssueFunc: func(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
			issued = token
			token.ID = "token_123"
			return token, nil
		},
	}

	sent := make(chan string, 1)
	sender := &MockEmailSender{
		SendPasswordResetFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			sent <- token
			return nil
		},
	}

	svc := newTestResetService(t, accounts, tokens, sender)

	err := svc.Request(context.Background(), account.Email, RequestMeta{IPAddress: "203.0.113.9", UserAgent: "test-agent"})
	require.NoError(t, err)

	require.NotNil(t, issued)
	assert.Equal(t, account.ID, issued.AccountID)
	assert.Len(t, issued.Token, pkgauth.ResetTokenLength)
	assert.Equal(t, "203.0.113.9", issued.RequestIP)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt, time.Minute)

	select {
	case token := <-sent:
		assert.Equal(t, issued.Token, token)
	case <-time.After(2 * time.Second):
		t.Fatal("reset email was never sent")
	}
}

func TestResetVerify(t *testing.T) {
	tokens := &MockResetTokenRepository{
		GetRedeemableFunc: func(ctx context.Context, token string) (*models.ResetToken, error) {
			if token == "valid-token" {
				return &models.ResetToken{ID: "token_123", AccountID: "acct_1", Token: token}, nil
			}
			return nil, models.ErrNotFound
		},
	}

	svc := newTestResetService(t, &MockAccountRepository{}, tokens, &MockEmailSender{})

	assert.NoError(t, svc.Verify(context.Background(), "valid-token"))
	assert.ErrorIs(t, svc.Verify(context.Background(), "expired-or-unknown"), models.ErrTokenInvalid)
	assert.ErrorIs(t, svc.Verify(context.Background(), ""), models.ErrTokenInvalid)
}

func TestResetRedeem_InvalidToken(t *testing.T) {
	tokens := &MockResetTokenRepository{
		GetRedeemableFunc: func(ctx context.Context, token string) (*models.ResetToken, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestResetService(t, &MockAccountRepository{}, tokens, &MockEmailSender{})

	err := svc.Redeem(context.Background(), "unknown-token", "Brand-New-Pass-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestResetRedeem_WeakPasswordLeavesTokenLive(t *testing.T) {
	tokens := &MockResetTokenRepository{
		GetRedeemableFunc: func(ctx context.Context, token string) (*models.ResetToken, error) {
			return &models.ResetToken{ID: "token_123", AccountID: "acct_1", Token: token}, nil
		},
		RedeemFunc: func(ctx context.Context, tokenID, accountID, passwordHash string) error {
			t.Fatal("a rejected password must not consume the token")
			return nil
		},
	}

	svc := newTestResetService(t, &MockAccountRepository{}, tokens, &MockEmailSender{})

	err := svc.Redeem(context.Background(), "valid-token", "short1A", RequestMeta{})

	var ruleErr *pkgauth.PasswordRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, pkgauth.RuleMinLength, ruleErr.Rule)
}

func TestResetRedeem_Success(t *testing.T) {
	var redeemedID, redeemedAccount, storedHash string

	tokens := &MockResetTokenRepository{
		GetRedeemableFunc: func(ctx context.Context, token string) (*models.ResetToken, error) {
			return &models.ResetToken{ID: "token_123", AccountID: "acct_1", Token: token}, nil
		},
		RedeemFunc: func(ctx context.Context, tokenID, accountID, passwordHash string) error {
			redeemedID = tokenID
			redeemedAccount = accountID
			storedHash = passwordHash
			return nil
		},
	}

	svc := newTestResetService(t, &MockAccountRepository{}, tokens, &MockEmailSender{})

	err := svc.Redeem(context.Background(), "valid-token", "Brand-New-Pass-1", RequestMeta{IPAddress: "203.0.113.9"})
	require.NoError(t, err)

	assert.Equal(t, "token_123", redeemedID)
	assert.Equal(t, "acct_1", redeemedAccount)
	assert.NoError(t, pkgauth.ComparePassword(storedHash, "Brand-New-Pass-1"))
}

func TestResetRedeem_LostRace(t *testing.T) {
	tokens := &MockResetTokenRepository{
		GetRedeemableFunc: func(ctx context.Context, token string) (*models.ResetToken, error) {
			return &models.ResetToken{ID: "token_123", AccountID: "acct_1", Token: token}, nil
		},
		RedeemFunc: func(ctx context.Context, tokenID, accountID, passwordHash string) error {
			return models.ErrTokenInvalid
		},
	}

	svc := newTestResetService(t, &MockAccountRepository{}, tokens, &MockEmailSender{})

	err := svc.Redeem(context.Background(), "valid-token", "Brand-New-Pass-1", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
