package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"clansite/internal/admission"
	"clansite/internal/auth"
	"clansite/internal/config"
	"clansite/internal/database"
	"clansite/internal/geolite"
	"clansite/internal/support"
)

const (
	sessionBackendMemory = "memory"
	sessionBackendRedis  = "redis"
)

// Services is everything the HTTP server and the background routines share.
type Services struct {
	DB       *gorm.DB
	Driver   string
	Redis    *redis.Client
	Registry *prometheus.Registry

	Engine       *admission.Engine
	Applications *database.ApplicationStore
	Visits       *database.VisitStore
	Settings     *config.Manager
	Auth         *auth.Manager
	Geo          *geolite.Lookup

	closers []io.Closer
}

// Setup opens storage and builds the collaborators. ctx bounds the redis
// subscriptions started here.
func Setup(ctx context.Context) (*Services, error) {
	svc := &Services{Registry: prometheus.NewRegistry()}
	svc.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := database.SetupDB()
	if err != nil {
		return nil, fmt.Errorf("set up database: %w", err)
	}
	svc.DB = db
	svc.Driver = db.Dialector.Name()

	if support.GetEnv("REDIS_URL", "") != "" {
		client, err := support.NewRedisClient(ctx)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.Redis = client
		svc.closers = append(svc.closers, client)
		log.Info("Connected to redis")
	}

	limits := admission.LimitsFromEnv()
	svc.Engine = admission.NewEngine(database.NewBlockStore(db), limits, admission.WithMetrics(admission.NewMetrics(svc.Registry)))
	log.Info("Admission limits",
		"visit_limit", limits.VisitLimit,
		"visit_block", limits.VisitBlockTime,
		"request_limit", limits.RequestLimit,
		"block_time", limits.BlockTime,
		"strict_per_ip", limits.StrictPerIP,
	)

	svc.Applications = database.NewApplicationStore(db)
	svc.Visits = database.NewVisitStore(db)

	settings, err := config.NewManager(support.GetEnv("SETTINGS_PATH", config.DefaultSettingsPath))
	if err != nil {
		svc.Close()
		return nil, err
	}
	if err := settings.Load(); err != nil {
		log.Error("Failed to load site settings, using defaults", "error", err)
	}
	if svc.Redis != nil {
		settings.EnableRedisSync(ctx, svc.Redis)
	}
	svc.Settings = settings

	authManager, err := setupAuth(svc.Redis)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Auth = authManager

	if geo := geolite.FromEnv(); geo != nil {
		svc.Geo = geo
		svc.closers = append(svc.closers, geo)
	}

	return svc, nil
}

func setupAuth(client *redis.Client) (*auth.Manager, error) {
	tokens, err := auth.TokenIssuerFromEnv()
	if err != nil {
		return nil, err
	}
	password, err := auth.PasswordVerifierFromEnv()
	if err != nil {
		return nil, err
	}

	idle := support.GetEnvDuration("SESSION_IDLE_TIMEOUT", auth.DefaultIdleTimeout)

	var sessions auth.SessionStore
	switch backend := support.GetEnv("SESSION_BACKEND", sessionBackendMemory); backend {
	case sessionBackendRedis:
		if client == nil {
			return nil, errors.New("SESSION_BACKEND=redis requires REDIS_URL")
		}
		sessions = auth.NewRedisSessionStore(client, idle)
	case sessionBackendMemory:
		sessions = auth.NewMemorySessionStore(idle)
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", backend)
	}

	return auth.NewManager(sessions, tokens, password), nil
}

// Close releases redis, the geoip reader and the database pool.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			log.Warn("Error during shutdown", "error", err)
		}
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
