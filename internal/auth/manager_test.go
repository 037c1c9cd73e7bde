package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *testClock) {
	t.Helper()

	tokens, err := NewTokenIssuer([]byte("test-session-secret-0123456789"))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	password, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	clock := &testClock{now: sessionTestBase}
	return NewManager(NewMemorySessionStore(time.Hour), tokens, password, WithNow(clock.Now)), clock
}

func TestManagerLoginAndAuthenticate(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login with wrong password: got %v, want ErrInvalidCredentials", err)
	}

	token, err := m.Login(ctx, "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, ok := m.Authenticate(ctx, token); !ok {
		t.Fatal("fresh token rejected")
	}
	if m.ActiveSessions(ctx) != 1 {
		t.Fatalf("ActiveSessions = %d, want 1", m.ActiveSessions(ctx))
	}

	clock.Advance(50 * time.Minute)
	if _, ok := m.Authenticate(ctx, token); !ok {
		t.Fatal("token rejected before idle timeout")
	}

	clock.Advance(61 * time.Minute)
	if _, ok := m.Authenticate(ctx, token); ok {
		t.Fatal("idle session accepted")
	}
}

func TestManagerLogout(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	token, err := m.Login(ctx, "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := m.Authenticate(ctx, token); ok {
		t.Fatal("session still valid after logout")
	}
	if err := m.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("Logout with garbage token: %v", err)
	}
}

func TestTokenIssuerRejectsTampering(t *testing.T) {
	issuer, err := NewTokenIssuer([]byte("test-session-secret-0123456789"))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	other, err := NewTokenIssuer([]byte("another-session-secret-987654"))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue("session-1", sessionTestBase)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := issuer.SessionID(token, sessionTestBase.Add(time.Minute))
	if err != nil || id != "session-1" {
		t.Fatalf("SessionID = %q, %v", id, err)
	}

	if _, err := other.SessionID(token, sessionTestBase); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign secret: got %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.SessionID(token+"x", sessionTestBase); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.SessionID(token, sessionTestBase.Add(MaxTokenAge+time.Second)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenIssuer([]byte("short")); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestPasswordVerifierFromEnv(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("from-hash"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	t.Setenv("ADMIN_PASSWORD_HASH", string(hash))
	t.Setenv("ADMIN_PASSWORD", "ignored")

	verifier, err := PasswordVerifierFromEnv()
	if err != nil {
		t.Fatalf("PasswordVerifierFromEnv: %v", err)
	}
	if !verifier.Verify("from-hash") || verifier.Verify("ignored") || verifier.Verify("") {
		t.Fatal("hash from environment not honoured")
	}

	if _, err := NewPasswordVerifier([]byte("not-a-hash")); err == nil {
		t.Fatal("expected error for invalid hash")
	}
}

func TestRequireAdmin(t *testing.T) {
	m, _ := newTestManager(t)
	token, err := m.Login(context.Background(), "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	var sawSession string
	api := m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSession, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	page := m.RequireAdminPage(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("api without cookie: status %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != loginPath {
		t.Fatalf("page without cookie: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(SessionCookie(token, false))
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("api with cookie: status %d, want 204", rec.Code)
	}
	if sawSession == "" {
		t.Fatal("session id not placed in request context")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cookie := SessionCookie("value", true)
	if !cookie.HttpOnly || cookie.MaxAge != 3600 || cookie.Name != "admin_session" || !cookie.Secure {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}
	if !strings.Contains(ExpiredSessionCookie(false).String(), "Max-Age=0") {
		t.Fatalf("expired cookie does not clear: %s", ExpiredSessionCookie(false).String())
	}
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisSessionStore(client, time.Minute)

	session, err := store.Create(ctx, time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, session.ID) })

	if ok, err := store.Touch(ctx, session.ID, time.Now()); err != nil || !ok {
		t.Fatalf("Touch = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Touch(ctx, session.ID, time.Now()); ok {
		t.Fatal("deleted session still valid")
	}
}
