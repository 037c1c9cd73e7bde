package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManagerLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "settings.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}

	s := m.Get()
	if s.Site.MaintenanceMode {
		t.Fatal("maintenance mode should be off by default")
	}
	if s.MinPlaytime() != 1500 {
		t.Fatalf("min playtime = %d, want 1500", s.MinPlaytime())
	}
	if s.ApplicationCooldown() != time.Hour {
		t.Fatalf("cooldown = %v, want 1h", s.ApplicationCooldown())
	}
	if len(s.GalleryImages) == 0 {
		t.Fatal("default gallery is empty")
	}
}

func TestManagerLoadReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := strings.Join([]string{
		"site:",
		"  name: test",
		"  maintenance_mode: true",
		"applications:",
		"  min_playtime: 200",
		"  cooldown_minutes: 5",
		"gallery_images:",
		"  - https://example.com/a.png",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := m.Get()
	if !m.MaintenanceMode() || s.Site.Name != "test" {
		t.Fatalf("unexpected site settings: %+v", s.Site)
	}
	if s.MinPlaytime() != 200 || s.ApplicationCooldown() != 5*time.Minute {
		t.Fatalf("unexpected application settings: %+v", s.Applications)
	}
	if len(s.GalleryImages) != 1 || s.GalleryImages[0] != "https://example.com/a.png" {
		t.Fatalf("gallery = %v", s.GalleryImages)
	}
}

func TestManagerLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("site: [unclosed"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Load(); err == nil {
		t.Fatal("expected parse error")
	}
	if m.MaintenanceMode() {
		t.Fatal("defaults should stay in place after a failed load")
	}
}

func TestSetMaintenanceModePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := m.SetMaintenanceMode(true); err != nil {
		t.Fatalf("SetMaintenanceMode: %v", err)
	}
	if !m.MaintenanceMode() {
		t.Fatal("maintenance mode not applied in memory")
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.MaintenanceMode() {
		t.Fatal("maintenance mode not persisted")
	}
	if len(reloaded.Get().GalleryImages) != len(m.Get().GalleryImages) {
		t.Fatal("gallery lost while persisting")
	}
}

func TestUpdateRejectsNilFunc(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Update(nil); err == nil {
		t.Fatal("expected error for nil updater")
	}
}
