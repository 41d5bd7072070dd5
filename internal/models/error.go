package models

import (
	"errors"
	"time"
)

// Sentinel errors for common failure conditions. Repositories and services
// return these; only the handler layer maps them to transport codes.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Security-policy rejections
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrRateLimited        = errors.New("too many attempts")
	ErrTokenInvalid       = errors.New("token invalid or expired")

	// Caller input rejections
	ErrPasswordUnchanged      = errors.New("new password must differ from the current one")
	ErrEmailInUse             = errors.New("email already in use")
	ErrTierEscalation         = errors.New("only super admins may assign the super_admin role")
	ErrSelfDelete             = errors.New("an account cannot delete itself")
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
)

// AccountLockedError carries the lockout expiry alongside the rejection so
// callers can tell the client when to retry. errors.Is(err, ErrAccountLocked)
// matches it.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return ErrAccountLocked.Error()
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
