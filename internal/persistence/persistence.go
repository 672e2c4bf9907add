// Package persistence implements the best-effort snapshot load/save
// shim of spec.md §4.6: a QOI image loaded at startup, plus a msgpack
// sidecar carrying metadata about the last successful save.
package persistence

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/protocol"
	"github.com/pixelflutd/pixelflutd/internal/qoi"
)

// sidecarSuffix names the metadata file written alongside the QOI
// image: image.qoi -> image.qoi.meta.
const sidecarSuffix = ".meta"

// Meta is the msgpack-encoded sidecar persisted next to the QOI image
// after each successful save, supplementing spec.md §4.6 (which only
// requires the image itself) with the bookkeeping an operator restoring
// from disk would want.
type Meta struct {
	Width   int       `msgpack:"width"`
	Height  int       `msgpack:"height"`
	Version uint64    `msgpack:"version"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// Load implements PixelGrid::load(path): read path, attempt a QOI
// decode, and on success build a grid from the decoded dimensions and
// pixels with version reset to 1. Any failure — missing file, decode
// error, unsupported content — degrades to a fresh
// canvas.DefaultWidth x canvas.DefaultHeight grid; Load never returns
// an error, matching the "never fatal, always produce a usable grid"
// contract of §4.6.
func Load(path string, logger *slog.Logger) *canvas.Grid {
	data, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Info("no snapshot to load, starting blank canvas", "path", path, "reason", err)
		}
		return mustBlank(logger)
	}

	pixels, width, height, err := qoi.Decode(data)
	if err != nil {
		if logger != nil {
			logger.Warn("snapshot decode failed, starting blank canvas", "path", path, "error", err)
		}
		return mustBlank(logger)
	}

	grid, err := canvas.NewFromPixels(width, height, pixels)
	if err != nil {
		if logger != nil {
			logger.Warn("decoded snapshot has invalid dimensions, starting blank canvas",
				"path", path, "width", width, "height", height, "error", err)
		}
		return mustBlank(logger)
	}

	if logger != nil {
		logger.Info("loaded snapshot", "path", path, "width", width, "height", height)
	}
	return grid
}

func mustBlank(logger *slog.Logger) *canvas.Grid {
	grid, err := canvas.New(canvas.DefaultWidth, canvas.DefaultHeight)
	if err != nil {
		// canvas.New only fails on non-positive dimensions; the
		// defaults are always valid.
		panic(fmt.Sprintf("persistence: default canvas dimensions rejected: %v", err))
	}
	return grid
}

// Save writes the encoded snapshot to path and a msgpack metadata
// sidecar alongside it. Intended to run off the hot path via
// internal/taskpool.SaveQueue, never on a connection goroutine.
func Save(path string, encoded []byte, width, height int, version uint64) error {
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}

	meta := Meta{Width: width, Height: height, Version: version, SavedAt: time.Now()}
	metaBytes, err := protocol.MarshalMsgpack(meta)
	if err != nil {
		return fmt.Errorf("encoding snapshot metadata: %w", err)
	}

	metaPath := path + sidecarSuffix
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return fmt.Errorf("writing snapshot metadata %s: %w", metaPath, err)
	}
	return nil
}

// LoadMeta reads back the metadata sidecar for path, if present; its
// absence is not an error. Load does not consult the sidecar, and no
// server component calls LoadMeta.
func LoadMeta(path string) (Meta, bool) {
	data, err := os.ReadFile(path + sidecarSuffix)
	if err != nil {
		return Meta{}, false
	}
	var m Meta
	if err := protocol.UnmarshalMsgpack(data, &m); err != nil {
		return Meta{}, false
	}
	return m, true
}

// DefaultPath joins dir with the canonical snapshot filename.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "image.qoi")
}
