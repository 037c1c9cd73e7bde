package auth

import (
	"fmt"

	"clansite/internal/support"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
)

const defaultAdminPassword = "admin123"

// PasswordVerifier checks the admin console password against a bcrypt hash.
type PasswordVerifier struct {
	hash []byte
}

func NewPasswordVerifier(hash []byte) (*PasswordVerifier, error) {
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	return &PasswordVerifier{hash: append([]byte(nil), hash...)}, nil
}

// HashPassword returns a verifier for a plain password.
func HashPassword(plain string, cost int) (*PasswordVerifier, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	return &PasswordVerifier{hash: hash}, nil
}

// PasswordVerifierFromEnv prefers ADMIN_PASSWORD_HASH, then ADMIN_PASSWORD,
// then the built-in default.
func PasswordVerifierFromEnv() (*PasswordVerifier, error) {
	if hash := support.GetEnv("ADMIN_PASSWORD_HASH", ""); hash != "" {
		return NewPasswordVerifier([]byte(hash))
	}

	plain := support.GetEnv("ADMIN_PASSWORD", "")
	if plain == "" {
		log.Warn("ADMIN_PASSWORD not set, using the default admin password")
		plain = defaultAdminPassword
	}
	return HashPassword(plain, bcrypt.DefaultCost)
}

func (p *PasswordVerifier) Verify(password string) bool {
	if p == nil || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.hash, []byte(password)) == nil
}
