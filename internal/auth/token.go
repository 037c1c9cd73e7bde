package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"clansite/internal/support"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer  = "clansite"
	tokenSubject = "admin"

	// MaxTokenAge caps a session cookie regardless of activity.
	MaxTokenAge = 12 * time.Hour
)

var ErrInvalidToken = errors.New("auth: invalid session token")

// TokenIssuer signs the admin session cookie. The token carries the session
// id as its jti; validity of the session itself is decided by the store.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("auth: session secret must be at least 16 bytes, got %d", len(secret))
	}
	return &TokenIssuer{secret: append([]byte(nil), secret...)}, nil
}

// TokenIssuerFromEnv reads SESSION_SECRET. Without it a random secret is
// generated, which invalidates every cookie on restart.
func TokenIssuerFromEnv() (*TokenIssuer, error) {
	if secret := support.GetEnv("SESSION_SECRET", ""); secret != "" {
		return NewTokenIssuer([]byte(secret))
	}

	log.Warn("SESSION_SECRET not set, generating a random one; admin sessions will not survive restarts")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("auth: generate session secret: %w", err)
	}
	return NewTokenIssuer(secret)
}

func (t *TokenIssuer) Issue(sessionID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    tokenIssuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(MaxTokenAge)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, nil
}

// SessionID validates token at now and returns the session id it carries.
func (t *TokenIssuer) SessionID(token string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
