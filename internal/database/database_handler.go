package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clansite/internal/domain"
	"clansite/internal/support"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	defaultSQLitePath = "data/clansite.db"
)

type Config struct {
	ExistingDB  *gorm.DB
	Dialector   gorm.Dialector
	Driver      string
	Logger      logger.Interface
	AutoMigrate bool
	Migrations  []any
}

type Option func(*Config)

// SetupDB opens the configured database, tunes the connection pool and
// migrates the schema. The caller owns the returned handle.
func SetupDB(opts ...Option) (*gorm.DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ExistingDB == nil && cfg.Dialector == nil {
		cfg.Dialector, cfg.Driver = dialectorFor(cfg.Driver)
	}

	var db *gorm.DB
	switch {
	case cfg.ExistingDB != nil:
		db = cfg.ExistingDB
	case cfg.Dialector != nil:
		gormCfg := &gorm.Config{}
		if cfg.Logger != nil {
			gormCfg.Logger = cfg.Logger
		}
		opened, err := gorm.Open(cfg.Dialector, gormCfg)
		if err != nil {
			return nil, fmt.Errorf("database: open connection: %w", err)
		}
		db = opened
		configureConnectionPool(db, cfg.Driver)
	default:
		return nil, fmt.Errorf("database: no dialector or existing connection provided")
	}

	if cfg.AutoMigrate && len(cfg.Migrations) > 0 {
		if err := db.AutoMigrate(cfg.Migrations...); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
		log.Info("Database migration completed.", "driver", cfg.Driver)
	}

	return db, nil
}

func defaultConfig() Config {
	return Config{
		Driver:      strings.ToLower(support.GetEnv("DB_DRIVER", driverSQLite)),
		Logger:      silentLogger(),
		AutoMigrate: true,
		Migrations:  defaultMigrations(),
	}
}

// dialectorFor builds the dialector for driver from the environment.
// Unknown drivers fall back to sqlite.
func dialectorFor(driver string) (gorm.Dialector, string) {
	switch driver {
	case driverPostgres:
		return postgres.Open(buildPostgresDSN()), driverPostgres
	default:
		return sqlite.Open(buildSQLiteDSN()), driverSQLite
	}
}

func buildSQLiteDSN() string {
	path := support.GetEnv("DB_PATH", defaultSQLitePath)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("database: create data directory", "dir", dir, "error", err)
		}
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_fk=1", path)
}

func buildPostgresDSN() string {
	dbHost := support.GetEnv("DB_HOST", "localhost")
	dbPort := support.GetEnv("DB_PORT", "5432")
	dbName := support.GetEnv("DB_NAME", "clansite")
	dbUser := support.GetEnv("DB_USERNAME", "clansite")
	dbPassword := support.GetEnv("DB_PASSWORD", "clansite")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost,
		dbPort,
		dbUser,
		dbPassword,
		dbName,
	)
}

func silentLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{LogLevel: logger.Silent},
	)
}

func defaultMigrations() []any {
	return []any{
		domain.IPBlock{},
		domain.ManualBlock{},
		domain.RequestLog{},
		domain.Application{},
		domain.ApplicationLimit{},
		domain.Visit{},
	}
}

func WithExistingDB(db *gorm.DB) Option {
	return func(cfg *Config) {
		cfg.ExistingDB = db
	}
}

func WithDialector(d gorm.Dialector) Option {
	return func(cfg *Config) {
		cfg.Dialector = d
	}
}

func WithLogger(l logger.Interface) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithAutoMigrate(enabled bool) Option {
	return func(cfg *Config) {
		cfg.AutoMigrate = enabled
	}
}

func WithMigrations(models ...any) Option {
	return func(cfg *Config) {
		if len(models) == 0 {
			cfg.Migrations = nil
			return
		}
		cfg.Migrations = append([]any(nil), models...)
	}
}

func configureConnectionPool(db *gorm.DB, driver string) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("database: get sql.DB", "error", err)
		return
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY storms.
	defaultOpen := 32
	if driver == driverSQLite {
		defaultOpen = 1
	}

	maxOpen := support.GetEnvInt("DB_MAX_OPEN_CONNS", defaultOpen)
	maxIdle := support.GetEnvInt("DB_MAX_IDLE_CONNS", maxOpen)
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}

	connLifetimeSeconds := support.GetEnvInt("DB_CONN_MAX_LIFETIME", 300)
	connIdleSeconds := support.GetEnvInt("DB_CONN_MAX_IDLE_TIME", 60)

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(connLifetimeSeconds) * time.Second)
	}
	if connIdleSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(connIdleSeconds) * time.Second)
	}
}
