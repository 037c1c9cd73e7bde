package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Manager ties the password check, the session store and the cookie token
// together for the admin console.
type Manager struct {
	sessions SessionStore
	tokens   *TokenIssuer
	password *PasswordVerifier
	now      func() time.Time
}

type ManagerOption func(*Manager)

func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(sessions SessionStore, tokens *TokenIssuer, password *PasswordVerifier, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: sessions,
		tokens:   tokens,
		password: password,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login checks password and opens a new session. The returned token is the
// value of the session cookie.
func (m *Manager) Login(ctx context.Context, password string) (string, error) {
	if !m.password.Verify(password) {
		log.Warn("Failed admin login attempt")
		return "", ErrInvalidCredentials
	}

	now := m.now()
	session, err := m.sessions.Create(ctx, now)
	if err != nil {
		return "", fmt.Errorf("auth: create session: %w", err)
	}

	token, err := m.tokens.Issue(session.ID, now)
	if err != nil {
		_ = m.sessions.Delete(ctx, session.ID)
		return "", err
	}

	log.Info("Admin logged in", "session", session.ID)
	return token, nil
}

// Authenticate resolves a cookie token to a live session id, refreshing its
// activity time.
func (m *Manager) Authenticate(ctx context.Context, token string) (string, bool) {
	if token == "" {
		return "", false
	}

	now := m.now()
	id, err := m.tokens.SessionID(token, now)
	if err != nil {
		log.Debug("Rejected admin session token", "error", err)
		return "", false
	}

	ok, err := m.sessions.Touch(ctx, id, now)
	if err != nil {
		log.Error("Admin session lookup failed", "session", id, "error", err)
		return "", false
	}
	return id, ok
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	id, err := m.tokens.SessionID(token, m.now())
	if err != nil {
		return nil
	}
	if err := m.sessions.Delete(ctx, id); err != nil {
		return err
	}
	log.Info("Admin logged out", "session", id)
	return nil
}

func (m *Manager) ActiveSessions(ctx context.Context) int {
	count, err := m.sessions.Count(ctx, m.now())
	if err != nil {
		log.Error("Count admin sessions", "error", err)
		return 0
	}
	return count
}

// SweepSessions drops idle sessions from the store.
func (m *Manager) SweepSessions(ctx context.Context) (int, error) {
	return m.sessions.Sweep(ctx, m.now())
}
