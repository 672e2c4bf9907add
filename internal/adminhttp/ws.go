package adminhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // admin surface is loopback-only by default config
	},
}

const statsPushInterval = time.Second

// statSample is one tick of the admin live-stats stream.
type statSample struct {
	FloodConnsActive  int64   `json:"flood_conns_active"`
	ViewerConnsActive int64   `json:"viewer_conns_active"`
	CanvasVersion     uint64  `json:"canvas_version"`
	AverageLuminance  float64 `json:"average_luminance"`
}

// statsHandler upgrades to a gorilla/websocket connection and pushes a
// statSample once a second until the client disconnects. This is the
// admin counterpart to the teacher's internal/websocket package: no
// PHP worker to forward messages to, just a one-way metrics push.
type statsHandler struct {
	tracker *taskpool.Tracker
	grid    *canvas.Grid
	logger  *slog.Logger
}

func newStatsHandler(tracker *taskpool.Tracker, grid *canvas.Grid, logger *slog.Logger) *statsHandler {
	return &statsHandler{tracker: tracker, grid: grid, logger: logger}
}

func (h *statsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("admin websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Debug("admin stats stream connected", "remote", r.RemoteAddr)
	defer h.logger.Debug("admin stats stream disconnected", "remote", r.RemoteAddr)

	// A reader goroutine is required so gorilla/websocket notices the
	// client closing the connection and unblocks the writer below.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			sample := h.sample()
			data, err := json.Marshal(sample)
			if err != nil {
				h.logger.Error("marshaling stats sample", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (h *statsHandler) sample() statSample {
	var s statSample
	if h.tracker != nil {
		stats := h.tracker.Stats()
		s.FloodConnsActive = stats.ActiveFloodConns
		s.ViewerConnsActive = stats.ActiveViewerConns
	}
	if h.grid != nil {
		s.CanvasVersion = h.grid.Version()
		s.AverageLuminance = averageLuminance(h.grid)
	}
	return s
}

// averageLuminance samples a coarse grid of cells (rather than every
// pixel) to keep this admin-only gauge cheap; it is never on the hot
// write path.
func averageLuminance(g *canvas.Grid) float64 {
	width, height := g.Size()
	if width == 0 || height == 0 {
		return 0
	}

	const samplesPerAxis = 32
	stepX := width / samplesPerAxis
	if stepX == 0 {
		stepX = 1
	}
	stepY := height / samplesPerAxis
	if stepY == 0 {
		stepY = 1
	}

	var sum float64
	var count int
	for y := 0; y < height; y += stepY {
		for x := 0; x < width; x += stepX {
			sum += g.Get(x, y).Luminance()
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
