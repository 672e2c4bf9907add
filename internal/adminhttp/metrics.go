package adminhttp

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

// Metrics collects Prometheus-compatible metrics for the admin surface.
type Metrics struct {
	activeRequests atomic.Int32

	tracker *taskpool.Tracker
	grid    *canvas.Grid

	snapshotEncodes atomic.Int64
	snapshotReused  atomic.Int64
}

// NewMetrics creates a new metrics collector reading from the shared
// connection tracker and canvas grid.
func NewMetrics(tracker *taskpool.Tracker, grid *canvas.Grid) *Metrics {
	return &Metrics{tracker: tracker, grid: grid}
}

// RecordEncode is called after each successful PixelGrid.EncodeSnapshot
// made by the render gateway, so /metrics can report encode volume and
// the cache hit ratio. Encodes made by the background snapshot ticker
// or a SIGUSR1 flush are not recorded.
func (m *Metrics) RecordEncode(reused bool) {
	m.snapshotEncodes.Add(1)
	if reused {
		m.snapshotReused.Add(1)
	}
}

// Middleware wraps next, serving metricsPath itself and tracking
// in-flight request count for everything else.
func (m *Metrics) Middleware(metricsPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == metricsPath {
				m.serveMetrics(w)
				return
			}

			m.activeRequests.Add(1)
			defer m.activeRequests.Add(-1)
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Metrics) serveMetrics(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	var b strings.Builder

	b.WriteString("# HELP pixelflutd_admin_requests_active Current number of in-flight admin HTTP requests.\n")
	b.WriteString("# TYPE pixelflutd_admin_requests_active gauge\n")
	fmt.Fprintf(&b, "pixelflutd_admin_requests_active %d\n", m.activeRequests.Load())

	if m.tracker != nil {
		stats := m.tracker.Stats()

		b.WriteString("# HELP pixelflutd_flood_connections_active Active pixel-flood TCP connections.\n")
		b.WriteString("# TYPE pixelflutd_flood_connections_active gauge\n")
		fmt.Fprintf(&b, "pixelflutd_flood_connections_active %d\n", stats.ActiveFloodConns)

		b.WriteString("# HELP pixelflutd_flood_connections_total Total pixel-flood TCP connections accepted.\n")
		b.WriteString("# TYPE pixelflutd_flood_connections_total counter\n")
		fmt.Fprintf(&b, "pixelflutd_flood_connections_total %d\n", stats.TotalFloodConns)

		b.WriteString("# HELP pixelflutd_viewer_connections_active Active viewer websocket connections.\n")
		b.WriteString("# TYPE pixelflutd_viewer_connections_active gauge\n")
		fmt.Fprintf(&b, "pixelflutd_viewer_connections_active %d\n", stats.ActiveViewerConns)

		b.WriteString("# HELP pixelflutd_viewer_connections_total Total viewer websocket connections accepted.\n")
		b.WriteString("# TYPE pixelflutd_viewer_connections_total counter\n")
		fmt.Fprintf(&b, "pixelflutd_viewer_connections_total %d\n", stats.TotalViewerConns)
	}

	b.WriteString("# HELP pixelflutd_snapshot_encodes_total Total PixelGrid.EncodeSnapshot calls made for viewers.\n")
	b.WriteString("# TYPE pixelflutd_snapshot_encodes_total counter\n")
	fmt.Fprintf(&b, "pixelflutd_snapshot_encodes_total %d\n", m.snapshotEncodes.Load())

	b.WriteString("# HELP pixelflutd_snapshot_encodes_reused_total EncodeSnapshot calls served from cache.\n")
	b.WriteString("# TYPE pixelflutd_snapshot_encodes_reused_total counter\n")
	fmt.Fprintf(&b, "pixelflutd_snapshot_encodes_reused_total %d\n", m.snapshotReused.Load())

	if m.grid != nil {
		b.WriteString("# HELP pixelflutd_canvas_version Current PixelGrid version counter.\n")
		b.WriteString("# TYPE pixelflutd_canvas_version counter\n")
		fmt.Fprintf(&b, "pixelflutd_canvas_version %d\n", m.grid.Version())
	}

	b.WriteString("# HELP pixelflutd_go_goroutines Number of goroutines.\n")
	b.WriteString("# TYPE pixelflutd_go_goroutines gauge\n")
	fmt.Fprintf(&b, "pixelflutd_go_goroutines %d\n", runtime.NumGoroutine())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	b.WriteString("# HELP pixelflutd_go_memstats_alloc_bytes Number of bytes allocated.\n")
	b.WriteString("# TYPE pixelflutd_go_memstats_alloc_bytes gauge\n")
	fmt.Fprintf(&b, "pixelflutd_go_memstats_alloc_bytes %d\n", mem.Alloc)

	w.Write([]byte(b.String()))
}
