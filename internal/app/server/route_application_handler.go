package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/microcosm-cc/bluemonday"

	"clansite/internal/domain"
)

var applicationFields = []string{"nickname", "steamId", "playtime", "discord", "role", "message"}

var applicationPolicy = bluemonday.StrictPolicy()

func (s *Server) submitApplication(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	values := make(map[string]string, len(applicationFields))
	for _, field := range applicationFields {
		value := strings.TrimSpace(applicationPolicy.Sanitize(r.PostForm.Get(field)))
		if value == "" {
			writeError(w, "Field "+field+" is required", http.StatusBadRequest)
			return
		}
		values[field] = value
	}

	settings := s.Settings.Get()
	playtime, err := strconv.Atoi(values["playtime"])
	if err != nil {
		writeError(w, "Playtime must be a number", http.StatusBadRequest)
		return
	}
	if playtime < settings.MinPlaytime() {
		writeError(w, "Minimum playtime is "+strconv.Itoa(settings.MinPlaytime())+" hours", http.StatusBadRequest)
		return
	}

	ip := s.clientIP(r)
	now := s.Engine.Now()

	canSubmit, err := s.Applications.CanSubmit(r.Context(), ip, now, settings.ApplicationCooldown())
	if err != nil {
		log.Error("Failed to check application cooldown", "ip", ip, "error", err)
		writeError(w, "Could not process application", http.StatusInternalServerError)
		return
	}
	if !canSubmit {
		writeError(w, "You can submit only one application per "+settings.ApplicationCooldown().String(), http.StatusBadRequest)
		return
	}

	id, err := s.Applications.Save(r.Context(), domain.Application{
		Nickname:  values["nickname"],
		SteamID:   values["steamId"],
		Playtime:  playtime,
		Discord:   values["discord"],
		Role:      values["role"],
		Message:   values["message"],
		IPAddress: ip,
		Timestamp: now,
		Status:    domain.ApplicationStatusNew,
	})
	if err != nil {
		log.Error("Failed to save application", "ip", ip, "error", err)
		writeError(w, "Could not save application", http.StatusInternalServerError)
		return
	}

	log.Info("Application received", "id", id, "nickname", values["nickname"], "role", values["role"], "ip", ip)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Application submitted",
		"id":      id,
	})
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	applications, err := s.Applications.List(r.Context())
	if err != nil {
		log.Error("Failed to list applications", "error", err)
		writeError(w, "Could not list applications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, applications)
}

func (s *Server) serveStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Applications.Statistics(r.Context(), s.Engine.Now())
	if err != nil {
		log.Error("Failed to compute application statistics", "error", err)
		writeError(w, "Could not compute statistics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
