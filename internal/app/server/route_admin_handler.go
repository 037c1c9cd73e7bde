package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"clansite/internal/admission"
	"clansite/internal/api/dto"
	"clansite/internal/app/version"
	"clansite/internal/auth"
)

const adminBlockedBy = "admin"

func (s *Server) serveAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.Auth.IsAdmin(r) {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	s.renderPage(w, http.StatusOK, "admin_login.html", s.pageData())
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.Auth.Login(r.Context(), credentials.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"success": false})
			return
		}
		log.Error("Admin login failed", "error", err)
		writeError(w, "Could not create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, s.opts.SecureCookies))
	log.Info("Admin logged in", "ip", s.clientIP(r))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := s.Auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Error("Failed to delete admin session", "error", err)
		}
	}
	http.SetCookie(w, auth.ExpiredSessionCookie(s.opts.SecureCookies))
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (s *Server) serveAdminDashboard(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, "admin.html", s.pageData())
}

// adminStats collapses concurrent dashboard refreshes into one set of queries.
func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	result, err, _ := s.stats.Do("dashboard", func() (any, error) {
		return s.dashboardInfo(r)
	})
	if err != nil {
		log.Error("Failed to compute dashboard statistics", "error", err)
		writeError(w, "Could not compute statistics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) dashboardInfo(r *http.Request) (dto.DashboardInfo, error) {
	ctx := r.Context()
	now := s.Engine.Now()

	var info dto.DashboardInfo

	applications, err := s.Applications.ExtendedStatistics(ctx, now)
	if err != nil {
		return info, err
	}
	info.Applications = applications

	if s.Visits != nil {
		visits, err := s.Visits.Statistics(ctx, now)
		if err != nil {
			return info, err
		}
		info.Visits = visits
	}

	blocks, err := s.Engine.ListActiveManualBlocks(ctx)
	if err != nil {
		return info, err
	}

	info.Services.Server = "running"
	info.Services.ServerPort = s.opts.Port
	info.Services.Database = s.opts.DatabaseDriver
	info.Services.Version = version.Get().BuildVersion
	info.System.ActiveSessions = s.Auth.ActiveSessions(ctx)
	info.System.ActiveBlocks = len(blocks)
	info.System.Maintenance = s.Settings.MaintenanceMode()
	info.System.Timestamp = now.UTC().Format(time.RFC3339)
	return info, nil
}

func (s *Server) adminApplications(w http.ResponseWriter, r *http.Request) {
	applications, err := s.Applications.List(r.Context())
	if err != nil {
		log.Error("Failed to list applications", "error", err)
		writeError(w, "Could not list applications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": applications})
}

func (s *Server) adminManualBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.Engine.ListActiveManualBlocks(r.Context())
	if err != nil {
		log.Error("Failed to list manual blocks", "error", err)
		writeError(w, "Could not list manual blocks", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

func (s *Server) adminAddManualBlock(w http.ResponseWriter, r *http.Request) {
	var req dto.AddManualBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IPAddress == "" {
		writeError(w, "IP address is required", http.StatusBadRequest)
		return
	}

	if _, err := s.Engine.AddManualBlock(r.Context(), req.IPAddress, adminBlockedBy, req.BlockReason, req.ExpiresHours.Ptr()); err != nil {
		s.writeManualBlockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) adminRemoveManualBlock(w http.ResponseWriter, r *http.Request) {
	var req dto.RemoveManualBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IPAddress == "" {
		writeError(w, "IP address is required", http.StatusBadRequest)
		return
	}

	if err := s.Engine.RemoveManualBlock(r.Context(), req.IPAddress); err != nil {
		s.writeManualBlockError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) writeManualBlockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admission.ErrInvalidIP):
		writeError(w, "Invalid IP address", http.StatusBadRequest)
	case errors.Is(err, admission.ErrInvalidExpiry):
		writeError(w, "Expiry must not be negative", http.StatusBadRequest)
	default:
		log.Error("Manual block operation failed", "error", err)
		writeError(w, "Could not update manual blocks", http.StatusInternalServerError)
	}
}

func (s *Server) adminRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		writeError(w, "Query parameter ip is required", http.StatusBadRequest)
		return
	}
	s.writeRateLimitStatus(w, r, ip)
}

func (s *Server) adminToggleMaintenance(w http.ResponseWriter, r *http.Request) {
	var req dto.MaintenanceToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Settings.SetMaintenanceMode(req.Enabled); err != nil {
		log.Error("Failed to toggle maintenance mode", "error", err)
		writeError(w, "Could not update maintenance mode", http.StatusInternalServerError)
		return
	}

	log.Info("Maintenance mode changed", "enabled", req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "maintenance_mode": req.Enabled})
}
