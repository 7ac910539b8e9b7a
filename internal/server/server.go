package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/config"
	"github.com/jackzampolin/lexreview/internal/server/endpoints"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

// Server is the lexreview HTTP server. The services it hands to requests are
// swapped atomically when the config file changes, so in-flight reviews
// finish on the pipeline they started with.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger

	services atomic.Pointer[svcctx.Services]

	stopPostgres bool

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// Services are the assembled components; required.
	Services *svcctx.Services
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// StopPostgres stops a managed Postgres container on shutdown.
	StopPostgres bool
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Services == nil {
		return nil, errors.New("services are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if c := cfg.Services.Config; c != nil {
		if cfg.Host == "" {
			cfg.Host = c.Server.Host
		}
		if cfg.Port == "" {
			cfg.Port = c.Server.Port
		}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	s := &Server{
		configMgr:    cfg.ConfigManager,
		logger:       cfg.Logger,
		stopPostgres: cfg.StopPostgres,
	}
	s.services.Store(cfg.Services)

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			next := s.services.Load().Reconfigure(c)
			s.services.Store(next)
			s.logger.Info("services reloaded from config",
				"ready", next.Ready(),
				"threshold", c.Review.Threshold)
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withServices(mux),
		ReadHeaderTimeout: 30 * time.Second,
		// Long agreements take minutes to review.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start serves HTTP until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.configMgr != nil {
		s.configMgr.WatchConfig()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains HTTP requests, then releases the services.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	svc := s.services.Load()
	if s.stopPostgres && svc.Docker != nil {
		s.logger.Info("stopping postgres container")
		if err := svc.Docker.Stop(shutdownCtx); err != nil {
			s.logger.Error("postgres stop error", "error", err)
		}
	}
	if err := svc.Close(); err != nil {
		s.logger.Error("failed to close services", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Services returns the services currently served.
func (s *Server) Services() *svcctx.Services {
	return s.services.Load()
}

// Endpoints returns the endpoint registry.
func (s *Server) Endpoints() *api.Registry {
	return s.endpointRegistry
}

// withServices enriches the request context with the current services and
// a request-scoped logger.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc := s.services.Load()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logger := s.logger.With("request_id", id)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)

		ctx := svcctx.WithServices(r.Context(), svc)
		ctx = svcctx.WithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit answers 503 while the review pipeline is unavailable.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := svcctx.ServicesFrom(r.Context())
		if !svc.Ready() {
			env := api.Envelope{Code: "NOT_READY", Message: "review pipeline not initialized"}
			if svc != nil && svc.InitErr != nil {
				env.Detail = svc.InitErr.Error()
			}
			api.WriteJSON(w, http.StatusServiceUnavailable, env)
			return
		}
		next(w, r)
	}
}
