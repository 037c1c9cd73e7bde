package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes() *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", s.serveIndex)
	router.HandleFunc("GET /zayavka", s.serveApplicationPage)
	router.HandleFunc("GET /gallery-images", s.serveGalleryImages)
	router.HandleFunc("GET /rate-limit-status", s.serveRateLimitStatus)

	router.HandleFunc("POST /submit_application", s.submitApplication)
	router.HandleFunc("GET /applications", s.listApplications)
	router.HandleFunc("GET /statistics", s.serveStatistics)

	router.HandleFunc("GET /admin/login", s.serveAdminLogin)
	router.HandleFunc("POST /admin/api/login", s.adminLogin)
	router.HandleFunc("GET /admin/logout", s.adminLogout)
	router.Handle("GET /admin", s.Auth.RequireAdminPage(http.HandlerFunc(s.serveAdminDashboard)))
	router.Handle("GET /admin/{$}", s.Auth.RequireAdminPage(http.HandlerFunc(s.serveAdminDashboard)))

	router.Handle("GET /admin/api/stats", s.Auth.RequireAdmin(http.HandlerFunc(s.adminStats)))
	router.Handle("GET /admin/api/applications", s.Auth.RequireAdmin(http.HandlerFunc(s.adminApplications)))
	router.Handle("GET /admin/api/manual-blocks", s.Auth.RequireAdmin(http.HandlerFunc(s.adminManualBlocks)))
	router.Handle("POST /admin/api/manual-blocks/add", s.Auth.RequireAdmin(http.HandlerFunc(s.adminAddManualBlock)))
	router.Handle("POST /admin/api/manual-blocks/remove", s.Auth.RequireAdmin(http.HandlerFunc(s.adminRemoveManualBlock)))
	router.Handle("GET /admin/api/rate-limit-status", s.Auth.RequireAdmin(http.HandlerFunc(s.adminRateLimitStatus)))
	router.Handle("POST /admin/api/maintenance/toggle", s.Auth.RequireAdmin(http.HandlerFunc(s.adminToggleMaintenance)))

	if s.Gatherer != nil {
		router.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	log.Debug("Routes opened")
	return router
}
