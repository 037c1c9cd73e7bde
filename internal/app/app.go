package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"clansite/internal/app/bootstrap"
	"clansite/internal/app/server"
	"clansite/internal/app/version"
	"clansite/internal/jobs/maintenance"
	"clansite/internal/support"
)

const defaultPort = 8080

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	portFlag := flag.Int("port", defaultPort, "Port for the web server")
	productionFlag := flag.Bool("production", false, "Run in production mode")
	flag.Parse()

	production := *productionFlag || support.GetEnvBool("PRODUCTION", false)
	logCloser := support.ConfigureLogging(production)
	defer logCloser.Close()

	port := resolvePort("PORT", "CLANSITE_PORT", *portFlag)

	info := version.Get()
	log.Info("Starting clansite", "version", info.BuildVersion, "built_at", info.BuiltAt, "production", production)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Setup(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv, err := server.New(server.Deps{
		Engine:       svc.Engine,
		Applications: svc.Applications,
		Visits:       svc.Visits,
		Settings:     svc.Settings,
		Auth:         svc.Auth,
		Geo:          svc.Geo,
		Gatherer:     svc.Registry,
	}, server.Options{
		Port:           port,
		TrustProxy:     support.GetEnvBool("TRUST_PROXY", false),
		SecureCookies:  production,
		MaxConnections: support.GetEnvInt("MAX_CONNECTIONS", 0),
		DatabaseDriver: svc.Driver,
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(groupCtx)
	})
	group.Go(func() error {
		maintenance.StartAdmissionSweepRoutine(groupCtx, svc.Engine, svc.Redis, maintenance.ResolveSweepInterval())
		return nil
	})
	group.Go(func() error {
		maintenance.StartSessionSweepRoutine(groupCtx, svc.Auth, 0)
		return nil
	})

	err = group.Wait()
	log.Info("clansite stopped")
	return err
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
