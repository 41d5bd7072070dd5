package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed content of a session token. Validity is
// self-contained (signature + expiry); no server-side session row exists.
type SessionClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
