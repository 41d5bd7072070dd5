package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost matches the original deployment's "rounds >= 12" policy.
	DefaultBcryptCost = 12

	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt input limit

	ResetTokenLength = 32
)

// resetTokenAlphabet is the fixed letters+digits alphabet for reset tokens.
const resetTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// PasswordRule identifies a specific strength rule a password violated.
type PasswordRule string

const (
	RuleMinLength PasswordRule = "min_length"
	RuleMaxLength PasswordRule = "max_length"
	RuleUppercase PasswordRule = "uppercase"
	RuleLowercase PasswordRule = "lowercase"
	RuleDigit     PasswordRule = "digit"
)

// PasswordRuleError reports the first strength rule a candidate password violated.
type PasswordRuleError struct {
	Rule PasswordRule
}

func (e *PasswordRuleError) Error() string {
	switch e.Rule {
	case RuleMinLength:
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLen)
	case RuleMaxLength:
		return fmt.Sprintf("password must be at most %d characters", MaxPasswordLen)
	case RuleUppercase:
		return "password must contain at least one uppercase letter"
	case RuleLowercase:
		return "password must contain at least one lowercase letter"
	case RuleDigit:
		return "password must contain at least one digit"
	}
	return "password does not meet strength requirements"
}

// ValidatePassword checks candidate passwords against the strength rules.
// It is a pre-condition check for account creation and password changes,
// deliberately separate from hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return &PasswordRuleError{Rule: RuleMinLength}
	}
	if len(password) > MaxPasswordLen {
		return &PasswordRuleError{Rule: RuleMaxLength}
	}

	hasUpper := false
	hasLower := false
	hasDigit := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return &PasswordRuleError{Rule: RuleUppercase}
	}
	if !hasLower {
		return &PasswordRuleError{Rule: RuleLowercase}
	}
	if !hasDigit {
		return &PasswordRuleError{Rule: RuleDigit}
	}

	return nil
}

// HashPassword hashes a password with bcrypt at the given cost.
// Costs below DefaultBcryptCost are raised to it.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if cost < DefaultBcryptCost {
		cost = DefaultBcryptCost
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword verifies a plaintext password against a stored bcrypt hash.
// A malformed or truncated stored hash yields a mismatch error, never a panic.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateResetToken returns a random token of ResetTokenLength characters
// drawn from letters and digits.
func GenerateResetToken() (string, error) {
	token := make([]byte, ResetTokenLength)
	max := big.NewInt(int64(len(resetTokenAlphabet)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reset token: %w", err)
		}
		token[i] = resetTokenAlphabet[n.Int64()]
	}
	return string(token), nil
}
