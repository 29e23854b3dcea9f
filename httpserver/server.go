package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luannanxian/qlib-gui-sub003/config"
	"github.com/luannanxian/qlib-gui-sub003/engine"
)

// Executor runs one validated-or-rejected snippet request.
type Executor interface {
	Execute(ctx context.Context, req engine.Request) (engine.Result, error)
}

// Server is the REST front of the execution engine.
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	executor   Executor
	gate       *engine.Gate
	httpServer *http.Server
}

// New creates the REST server with its routes mounted.
func New(cfg *config.Config, logger *zap.Logger, executor Executor, gate *engine.Gate) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		executor: executor,
		gate:     gate,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/execute/limits", s.handleLimits)
		r.With(PerIPRateLimit(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)).
			Post("/execute", s.handleExecute)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. It blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting REST server", zap.Int("port", s.config.Server.HTTPPort))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping REST server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
