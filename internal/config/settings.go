package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
)

const (
	DefaultSettingsPath = "data/settings.yaml"

	defaultMinPlaytime = 1500
)

//go:embed default_settings.yaml
var defaultSettings []byte

// Settings is the operator editable site configuration.
type Settings struct {
	Site struct {
		Name            string `yaml:"name" json:"name"`
		MaintenanceMode bool   `yaml:"maintenance_mode" json:"maintenance_mode"`
	} `yaml:"site" json:"site"`

	Applications struct {
		MinPlaytime     int `yaml:"min_playtime" json:"min_playtime"`
		CooldownMinutes int `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	} `yaml:"applications" json:"applications"`

	GalleryImages []string `yaml:"gallery_images" json:"gallery_images"`
}

// ApplicationCooldown is the minimum gap between two applications from one IP.
func (s Settings) ApplicationCooldown() time.Duration {
	if s.Applications.CooldownMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.Applications.CooldownMinutes) * time.Minute
}

// MinPlaytime is the playtime in hours an applicant must have.
func (s Settings) MinPlaytime() int {
	if s.Applications.MinPlaytime <= 0 {
		return defaultMinPlaytime
	}
	return s.Applications.MinPlaytime
}

// Manager serves the current Settings and persists changes back to disk.
type Manager struct {
	path   string
	value  atomic.Value
	mu     sync.Mutex
	remote *redisSync
}

// NewManager returns a manager seeded with the built-in defaults. Call Load
// to read the file at path.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		path = DefaultSettingsPath
	}

	defaults, err := parseSettings(defaultSettings)
	if err != nil {
		return nil, fmt.Errorf("config: parse built-in settings: %w", err)
	}

	m := &Manager{path: path}
	m.value.Store(defaults)
	return m, nil
}

// Load reads the settings file, writing the defaults first if it does not exist.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", m.path, err)
		}

		log.Warn("Settings file not found, creating with default configuration", "path", m.path)
		if err := writeSettingsFile(m.path, defaultSettings); err != nil {
			return err
		}
		data = defaultSettings
	}

	settings, err := parseSettings(data)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", m.path, err)
	}

	if err := m.apply(settings, updateOptions{source: "file"}); err != nil {
		return err
	}
	log.Debug("Settings file loaded successfully", "path", m.path, "maintenance", settings.Site.MaintenanceMode)
	return nil
}

func (m *Manager) Get() Settings {
	return m.value.Load().(Settings)
}

func (m *Manager) MaintenanceMode() bool {
	return m.Get().Site.MaintenanceMode
}

// SetMaintenanceMode switches the maintenance page on or off and persists the change.
func (m *Manager) SetMaintenanceMode(enabled bool) error {
	err := m.Update(func(s *Settings) {
		s.Site.MaintenanceMode = enabled
	})
	if err == nil {
		log.Info("Maintenance mode changed", "enabled", enabled)
	}
	return err
}

// Update applies fn to a copy of the current settings, stores the result and
// writes it to the settings file.
func (m *Manager) Update(fn func(*Settings)) error {
	if fn == nil {
		return errors.New("config: settings updater cannot be nil")
	}

	next := m.Get()
	next.GalleryImages = append([]string(nil), next.GalleryImages...)
	fn(&next)

	return m.apply(next, updateOptions{persistToFile: true, broadcast: true, source: "local"})
}

type updateOptions struct {
	persistToFile bool
	broadcast     bool
	source        string
}

func (m *Manager) apply(next Settings, opts updateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.value.Store(next)

	var errs []error
	var payload []byte
	if opts.persistToFile || opts.broadcast {
		data, err := yaml.Marshal(next)
		if err != nil {
			return fmt.Errorf("config: marshal settings: %w", err)
		}
		payload = data
	}

	if opts.persistToFile {
		if err := writeSettingsFile(m.path, payload); err != nil {
			log.Error("Error writing settings file", "path", m.path, "error", err)
			errs = append(errs, err)
		}
	}

	if opts.broadcast && m.remote != nil {
		if err := m.remote.publish(payload); err != nil {
			log.Error("Error broadcasting settings update", "error", err)
			errs = append(errs, err)
		}
	}

	log.Debug("Settings applied", "source", opts.source)
	return errors.Join(errs...)
}

func parseSettings(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func writeSettingsFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
