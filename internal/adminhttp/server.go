package adminhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/config"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

// Server is the admin HTTP surface: health, metrics, and the live-stats
// websocket. It is deliberately separate from internal/gateway, which
// speaks the hand-rolled viewer protocol outside net/http entirely.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	http    *http.Server
	router  *Router
	metrics *Metrics
}

// New creates a new admin server bound to cfg.Admin.Address. grid may
// be nil; health and the stats stream both tolerate that, and keep the
// pointer given here for the server's lifetime.
func New(cfg *config.Config, tracker *taskpool.Tracker, grid *canvas.Grid, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	s.metrics = NewMetrics(tracker, grid)
	s.router = NewRouter(cfg, tracker, grid, logger)

	s.http = &http.Server{
		Addr:         cfg.Admin.Address,
		Handler:      s.buildMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for admin HTTP connections. No TLS, no ACME,
// no HTTP/2 or HTTP/3: the admin surface is loopback-only by default
// config and is never meant to be exposed alongside the viewer/ingress
// ports.
func (s *Server) Start() error {
	s.logger.Info("admin server starting", "address", s.cfg.Admin.Address)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the admin server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("admin server shutting down")
	return s.http.Shutdown(ctx)
}

// Metrics exposes the underlying metrics collector so callers can
// record snapshot-encode events from outside the admin package.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) buildMiddleware(handler http.Handler) http.Handler {
	handler = CoreMiddleware(s.logger)(handler)
	handler = s.metrics.Middleware(s.cfg.Admin.MetricsPath)(handler)
	return handler
}
