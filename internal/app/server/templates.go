package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageTemplates struct {
	pages map[string]*template.Template
}

type siteView struct {
	SiteName      string
	GalleryImages []string
	MinPlaytime   int
	CanSubmit     bool
}

type blockedPage struct {
	Title      string
	Message    string
	IP         string
	RetryAfter int
}

func loadTemplates() (*pageTemplates, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("server: read templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry.Name() == "layout.html" {
			continue
		}
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("server: parse template %s: %w", entry.Name(), err)
		}
		pages[entry.Name()] = tmpl
	}
	return &pageTemplates{pages: pages}, nil
}

func (s *Server) pageData() siteView {
	settings := s.Settings.Get()
	return siteView{
		SiteName:      settings.Site.Name,
		GalleryImages: settings.GalleryImages,
		MinPlaytime:   settings.MinPlaytime(),
	}
}

// renderPage renders into a buffer first so a template error still yields a
// clean 500.
func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.templates.pages[name]
	if !ok {
		log.Error("Unknown page template", "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error("Failed to render page", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
