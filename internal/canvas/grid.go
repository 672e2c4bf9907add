// Package canvas implements the shared pixel grid: a fixed-dimension
// raster of atomic 32-bit color cells plus a monotonic version counter,
// with a cached QOI-encoded snapshot keyed on that version.
//
// All operations are safe to call concurrently without a global lock,
// the way internal/worker/pool.go tracks worker counts with atomics
// rather than a mutex around the hot path.
package canvas

import (
	"fmt"
	"sync/atomic"

	"github.com/pixelflutd/pixelflutd/internal/color"
)

// DefaultWidth and DefaultHeight are the canvas dimensions used when no
// image is loaded from disk at startup.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Grid is the shared, never-destroyed pixel raster. One Grid is
// constructed per process and borrowed by every connection-handling
// goroutine for its entire lifetime.
type Grid struct {
	width, height int
	cells         []atomic.Uint32
	version       atomic.Uint64

	cache atomic.Pointer[Snapshot]
}

// Snapshot is a cached tuple of (version the frame was taken at, encoded
// bytes). Readers observe either a complete old frame or a complete new
// one, never a partial one, because it is replaced with a single atomic
// pointer swap.
type Snapshot struct {
	Version uint64
	Bytes   []byte
}

// New allocates an empty black grid of the given dimensions with
// version 1, per spec.md's PixelGrid.new(w,h) contract.
func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid dimensions %dx%d", width, height)
	}

	g := &Grid{
		width:  width,
		height: height,
		cells:  make([]atomic.Uint32, width*height),
	}
	for i := range g.cells {
		g.cells[i].Store(uint32(color.Black))
	}
	g.version.Store(1)
	return g, nil
}

// NewFromPixels builds a grid from a previously decoded row-major RGBA
// buffer, used by the persistence shim when a startup image load
// succeeds.
func NewFromPixels(width, height int, pixels []byte) (*Grid, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("canvas: pixel buffer length %d does not match %dx%d*4", len(pixels), width, height)
	}
	g, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := 0; i < width*height; i++ {
		c := color.FromRGBA(pixels[i*4], pixels[i*4+1], pixels[i*4+2], pixels[i*4+3])
		g.cells[i].Store(c.Raw())
	}
	g.version.Store(1)
	return g, nil
}

// Size returns the grid's fixed dimensions.
func (g *Grid) Size() (width, height int) { return g.width, g.height }

// InBounds reports whether (x, y) is a valid cell coordinate.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) index(x, y int) int { return x + y*g.width }

// Get reads the current color at (x, y). The caller must have already
// bounds-checked the coordinates.
func (g *Grid) Get(x, y int) color.Color {
	return color.Color(g.cells[g.index(x, y)].Load())
}

// Store atomically overwrites the cell at (x, y) and ticks the version
// counter. The caller must have already bounds-checked the coordinates.
func (g *Grid) Store(x, y int, c color.Color) {
	g.cells[g.index(x, y)].Store(c.Raw())
	g.version.Add(1)
}

// Version returns the current version counter. It is an upper bound on
// change, not proof any cell actually changed: the counter advances on
// every accepted write even an idempotent one would (though
// CommandEngine skips the store entirely for true no-ops, see §9).
func (g *Grid) Version() uint64 { return g.version.Load() }

// Snapshot returns the grid's cache, if one has been produced yet.
func (g *Grid) Snapshot() *Snapshot { return g.cache.Load() }

// installSnapshot publishes a new cache entry with a single atomic
// pointer swap so concurrent readers see either the old or the new
// complete frame.
func (g *Grid) installSnapshot(s *Snapshot) { g.cache.Store(s) }

// RawRGBA packs every cell into a tightly packed row-major RGBA byte
// buffer, for handing to an encoder. Reads are relaxed: concurrent
// writers may race with this iteration, which is acceptable per §5 —
// the resulting frame may mix writes from different instants.
func (g *Grid) RawRGBA() []byte {
	buf := make([]byte, len(g.cells)*4)
	for i := range g.cells {
		v := g.cells[i].Load()
		buf[i*4] = byte(v >> 24)
		buf[i*4+1] = byte(v >> 16)
		buf[i*4+2] = byte(v >> 8)
		buf[i*4+3] = byte(v)
	}
	return buf
}
