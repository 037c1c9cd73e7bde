package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"clansite/internal/admission"
	"clansite/internal/api/dto"
)

func (s *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, "index.html", s.pageData())
}

func (s *Server) serveApplicationPage(w http.ResponseWriter, r *http.Request) {
	data := s.pageData()
	data.CanSubmit = true

	if s.Applications != nil {
		canSubmit, err := s.Applications.CanSubmit(r.Context(), s.clientIP(r), s.Engine.Now(), s.Settings.Get().ApplicationCooldown())
		if err != nil {
			log.Error("Failed to check application cooldown", "error", err)
		} else {
			data.CanSubmit = canSubmit
		}
	}

	s.renderPage(w, http.StatusOK, "application.html", data)
}

func (s *Server) serveGalleryImages(w http.ResponseWriter, _ *http.Request) {
	images := s.Settings.Get().GalleryImages
	if images == nil {
		images = []string{}
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) serveRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	s.writeRateLimitStatus(w, r, s.clientIP(r))
}

func (s *Server) writeRateLimitStatus(w http.ResponseWriter, r *http.Request, ip string) {
	status, err := s.Engine.Status(r.Context(), ip, s.Engine.Now())
	if err != nil {
		if errors.Is(err, admission.ErrInvalidIP) {
			writeError(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		log.Error("Failed to read rate limit status", "ip", ip, "error", err)
		writeError(w, "Could not read rate limit status", http.StatusInternalServerError)
		return
	}

	country := ""
	if s.Geo != nil {
		country = s.Geo.Country(status.IP)
	}
	writeJSON(w, http.StatusOK, rateLimitStatusDTO(status, country))
}

func rateLimitStatusDTO(status admission.Status, country string) dto.RateLimitStatus {
	out := dto.RateLimitStatus{
		IP:              status.IP,
		CurrentRequests: status.CurrentRequests,
		Limit:           status.Limit,
		Remaining:       status.Remaining,
		Blocked:         status.Blocked,
		ResetTime:       status.ResetTime.UTC().Format(time.RFC3339),
		Country:         country,
	}
	if status.BlockReason != "" {
		reason := status.BlockReason
		out.BlockReason = &reason
	}
	return out
}
