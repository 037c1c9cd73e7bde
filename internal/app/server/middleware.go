package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"clansite/internal/admission"
	"clansite/internal/domain"
	"clansite/internal/support"
)

func (s *Server) clientIP(r *http.Request) string {
	return support.ClientIP(r, s.opts.TrustProxy)
}

// admissionGate consults the admission engine before anything else runs.
func (s *Server) admissionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := s.clientIP(r)
		verdict := s.Engine.Admit(r.Context(), ip, r.URL.Path, s.Engine.Now())

		switch verdict.Reason {
		case admission.ReasonManualBlock:
			s.renderPage(w, http.StatusForbidden, "blocked.html", blockedPage{
				Title:   "Доступ запрещён",
				Message: "Ваш IP-адрес заблокирован администратором.",
				IP:      ip,
			})
			return
		case admission.ReasonVisitLimit, admission.ReasonDDoS:
			retry := verdict.RetryAfter
			if retry <= 0 {
				retry = s.Engine.Limits().BlockDuration(string(verdict.Reason))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))

			message := "Слишком много посещений. Попробуйте снова через минуту."
			if verdict.Reason == admission.ReasonDDoS {
				message = "Обнаружена подозрительная активность. Доступ временно ограничен."
			}
			s.renderPage(w, http.StatusTooManyRequests, "blocked.html", blockedPage{
				Title:      "Слишком много запросов",
				Message:    message,
				IP:         ip,
				RetryAfter: int(retry / time.Second),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// maintenanceGate answers public GETs with the maintenance page while the
// site is in maintenance mode. The admin console stays reachable.
func (s *Server) maintenanceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && s.Settings.MaintenanceMode() && !isAdminPath(r.URL.Path) {
			s.renderPage(w, http.StatusServiceUnavailable, "maintenance.html", s.pageData())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recordVisits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && s.Visits != nil {
			visit := domain.Visit{
				IPAddress: s.clientIP(r),
				UserAgent: r.UserAgent(),
				Path:      r.URL.Path,
				Timestamp: s.Engine.Now(),
			}
			if err := s.Visits.Record(r.Context(), visit); err != nil {
				log.Error("Failed to record visit", "ip", visit.IPAddress, "path", visit.Path, "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isAdminPath(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}
