package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/singleflight"

	"clansite/internal/admission"
	"clansite/internal/api/dto"
	"clansite/internal/auth"
	"clansite/internal/config"
	"clansite/internal/domain"
	"clansite/internal/geolite"
)

const (
	defaultMaxConnections = 512
	shutdownTimeout       = 10 * time.Second
)

type ApplicationRepository interface {
	CanSubmit(ctx context.Context, ip string, now time.Time, cooldown time.Duration) (bool, error)
	Save(ctx context.Context, app domain.Application) (uint64, error)
	List(ctx context.Context) ([]domain.Application, error)
	Statistics(ctx context.Context, now time.Time) (dto.ApplicationStatistics, error)
	ExtendedStatistics(ctx context.Context, now time.Time) (dto.ExtendedApplicationStatistics, error)
}

type VisitRepository interface {
	Record(ctx context.Context, visit domain.Visit) error
	Statistics(ctx context.Context, now time.Time) (dto.VisitStatistics, error)
}

// Deps are the collaborators a Server dispatches to.
type Deps struct {
	Engine       *admission.Engine
	Applications ApplicationRepository
	Visits       VisitRepository
	Settings     *config.Manager
	Auth         *auth.Manager
	Geo          *geolite.Lookup
	Gatherer     prometheus.Gatherer
}

type Options struct {
	Port           int
	TrustProxy     bool
	SecureCookies  bool
	MaxConnections int
	DatabaseDriver string
}

// Server holds every piece of request-time state. Handlers reach it through
// their receiver.
type Server struct {
	Deps
	opts Options

	templates *pageTemplates
	stats     singleflight.Group
}

func New(deps Deps, opts Options) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("server: admission engine is required")
	}
	if deps.Settings == nil || deps.Auth == nil {
		return nil, errors.New("server: settings and auth are required")
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = defaultMaxConnections
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{Deps: deps, opts: opts, templates: templates}, nil
}

// Handler returns the full middleware chain. Admission runs first for every
// request.
func (s *Server) Handler() http.Handler {
	router := s.routes()
	return s.admissionGate(enableCORS(s.maintenanceGate(s.recordVisits(router))))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	limited := netutil.LimitListener(listener, s.opts.MaxConnections)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting clansite server", "addr", listener.Addr().String(), "max_connections", s.opts.MaxConnections)
		errCh <- httpServer.Serve(limited)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down clansite server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
