package adminhttp

import (
	"log/slog"
	"net/http"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/config"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

// Router dispatches incoming admin HTTP requests: health and the
// live-stats websocket. The metrics path never reaches the Router; it
// is answered by Metrics.Middleware, which Server wraps around it.
// There is no static file serving and no
// upstream process to proxy to — the viewer-facing protocol lives
// entirely in internal/gateway, outside net/http.
type Router struct {
	cfg           *config.Config
	logger        *slog.Logger
	healthHandler *HealthHandler
	wsHandler     http.Handler
}

// NewRouter creates a new admin request router.
func NewRouter(cfg *config.Config, tracker *taskpool.Tracker, grid *canvas.Grid, logger *slog.Logger) *Router {
	return &Router{
		cfg:           cfg,
		logger:        logger,
		healthHandler: NewHealthHandler(tracker, grid),
		wsHandler:     newStatsHandler(tracker, grid, logger),
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/health", "/healthz", "/ready", "/readyz":
		r.healthHandler.ServeHTTP(w, req)
		return
	case "/admin/ws":
		r.wsHandler.ServeHTTP(w, req)
		return
	}
	http.NotFound(w, req)
}
