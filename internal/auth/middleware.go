package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/numisma/numisma/internal/models"
	apphttp "github.com/numisma/numisma/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// AccountContextKey holds the authenticated *models.Account
	AccountContextKey contextKey = "account"
	// ClaimsContextKey holds the verified *models.SessionClaims
	ClaimsContextKey contextKey = "claims"
)

// AccountFetcher loads the current account row for a verified token.
type AccountFetcher interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// RequireAuth validates the bearer token, loads the account from storage and
// injects it into the request context. The database row is the source of
// truth for role and active status: a deactivated account is rejected even
// while its token is still cryptographically valid.
func RequireAuth(tm *TokenManager, accounts AccountFetcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apphttp.WriteUnauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				apphttp.WriteUnauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := tm.Verify(parts[1])
			if err != nil {
				apphttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			account, err := accounts.GetByID(r.Context(), claims.AccountID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					apphttp.WriteUnauthorized(w, "Invalid or expired token")
					return
				}
				apphttp.WriteInternalError(w, "Unable to verify account")
				return
			}

			if !account.Active {
				apphttp.WriteError(w, http.StatusForbidden, apphttp.ReasonAccountInactive, "Account is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, AccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits admin and super_admin accounts.
func RequireAdmin(next http.Handler) http.Handler {
	return requireTier(models.RoleAdmin)(next)
}

// RequireSuperAdmin admits super_admin accounts only.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return requireTier(models.RoleSuperAdmin)(next)
}

// roleRank orders tiers for minimum-tier checks. Unknown roles rank below
// every tier so the check fails closed.
func roleRank(role string) int {
	switch role {
	case models.RoleAdmin:
		return 1
	case models.RoleSuperAdmin:
		return 2
	default:
		return 0
	}
}

func requireTier(minRole string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccountFromContext(r)
			if account == nil {
				apphttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if roleRank(account.Role) < roleRank(minRole) {
				apphttp.WriteForbidden(w, "forbidden", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetAccountFromContext extracts the authenticated account, or nil when the
// request did not pass RequireAuth.
func GetAccountFromContext(r *http.Request) *models.Account {
	account, ok := r.Context().Value(AccountContextKey).(*models.Account)
	if !ok {
		return nil
	}
	return account
}

// GetClaimsFromContext extracts the verified session claims.
func GetClaimsFromContext(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
