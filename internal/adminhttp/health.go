package adminhttp

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

var startTime = time.Now()

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	tracker *taskpool.Tracker
	grid    *canvas.Grid
}

// NewHealthHandler creates a new health check handler. grid may be nil,
// in which case readiness reports not_ready; the handler keeps the
// pointer it is given and never picks up a grid later.
func NewHealthHandler(tracker *taskpool.Tracker, grid *canvas.Grid) *HealthHandler {
	return &HealthHandler{tracker: tracker, grid: grid}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ready", "/readyz":
		h.readiness(w)
	default:
		h.liveness(w)
	}
}

func (h *HealthHandler) liveness(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
	})
}

func (h *HealthHandler) readiness(w http.ResponseWriter) {
	ready := h.grid != nil
	status := http.StatusOK
	statusStr := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		statusStr = "not_ready"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	body := map[string]interface{}{
		"status":         statusStr,
		"uptime":         time.Since(startTime).String(),
		"uptime_seconds": time.Since(startTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_mb":  mem.Alloc / 1024 / 1024,
			"sys_mb":    mem.Sys / 1024 / 1024,
			"gc_cycles": mem.NumGC,
		},
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if h.tracker != nil {
		stats := h.tracker.Stats()
		body["connections"] = map[string]interface{}{
			"flood_active":  stats.ActiveFloodConns,
			"viewer_active": stats.ActiveViewerConns,
		}
	}
	if h.grid != nil {
		width, height := h.grid.Size()
		body["canvas"] = map[string]interface{}{
			"width":   width,
			"height":  height,
			"version": h.grid.Version(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
