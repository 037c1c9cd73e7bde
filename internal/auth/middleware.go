package auth

import (
	"context"
	"net/http"
)

const (
	SessionCookieName = "admin_session"
	// SessionCookieMaxAge is the cookie lifetime in seconds.
	SessionCookieMaxAge = 3600

	loginPath = "/admin/login"
)

type sessionContextKey struct{}

// RequireAdmin rejects requests without a valid admin session with 403.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.sessionFromRequest(r)
		if !ok {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, id)))
	})
}

// RequireAdminPage redirects browsers without a valid admin session to the login page.
func (m *Manager) RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, id)))
	})
}

// IsAdmin reports whether r carries a valid admin session without refusing it.
func (m *Manager) IsAdmin(r *http.Request) bool {
	_, ok := m.sessionFromRequest(r)
	return ok
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionContextKey{}).(string)
	return id, ok
}

func SessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) sessionFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	return m.Authenticate(r.Context(), cookie.Value)
}
