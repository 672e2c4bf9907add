// Package taskpool provides the connection-slot accounting and
// asynchronous snapshot-save plumbing shared by TcpIngress and
// RenderGateway: Tracker counts live connections per kind and enforces
// an optional viewer admission cap; SaveQueue drains encoded snapshot
// bytes to disk off the hot path.
package taskpool

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Tracker accounts for live flood and viewer connections. It has no
// subprocess to manage — unlike the worker pool it is descended from,
// there is nothing to spawn or recycle — only counters and, for
// viewers, an admission gate.
type Tracker struct {
	logger *slog.Logger

	maxViewers int // 0 means unlimited

	floodConns   atomic.Int64
	viewerConns  atomic.Int64
	totalFlood   atomic.Int64
	totalViewers atomic.Int64

	mu sync.Mutex
}

// NewTracker builds a Tracker. maxViewers <= 0 disables the admission
// cap.
func NewTracker(maxViewers int, logger *slog.Logger) *Tracker {
	return &Tracker{maxViewers: maxViewers, logger: logger}
}

// AcquireFlood registers a new pixel-flood connection. Flood
// connections are never capped: the protocol has no backpressure
// signal for a rejected TCP client, so TcpIngress always accepts.
func (t *Tracker) AcquireFlood() {
	t.floodConns.Add(1)
	t.totalFlood.Add(1)
}

// ReleaseFlood unregisters a pixel-flood connection.
func (t *Tracker) ReleaseFlood() {
	t.floodConns.Add(-1)
}

// AcquireViewer attempts to register a new viewer connection, applying
// the MaxViewers admission cap if configured. ok is false when the
// cap is already reached; the caller must not proceed to serve the
// connection in that case.
func (t *Tracker) AcquireViewer() (ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxViewers > 0 && int(t.viewerConns.Load()) >= t.maxViewers {
		if t.logger != nil {
			t.logger.Warn("viewer connection rejected: admission cap reached",
				"max_viewers", t.maxViewers)
		}
		return false
	}

	t.viewerConns.Add(1)
	t.totalViewers.Add(1)
	return true
}

// ReleaseViewer unregisters a viewer connection previously admitted by
// AcquireViewer.
func (t *Tracker) ReleaseViewer() {
	t.viewerConns.Add(-1)
}

// Stats is a point-in-time snapshot of connection counts, consumed by
// internal/adminhttp's health and metrics routes.
type Stats struct {
	ActiveFloodConns  int64
	ActiveViewerConns int64
	TotalFloodConns   int64
	TotalViewerConns  int64
}

// Stats returns the current counters.
func (t *Tracker) Stats() Stats {
	return Stats{
		ActiveFloodConns:  t.floodConns.Load(),
		ActiveViewerConns: t.viewerConns.Load(),
		TotalFloodConns:   t.totalFlood.Load(),
		TotalViewerConns:  t.totalViewers.Load(),
	}
}
