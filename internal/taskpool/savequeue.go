package taskpool

import (
	"log/slog"
)

// SaveQueue runs a single background goroutine that drains encoded
// snapshot byte slices to a persistence sink, so canvas.Grid.
// EncodeSnapshot's onSave callback never blocks a pixel-flood or
// viewer connection on disk I/O. Modeled on the teacher's worker pool
// shape reduced to its single responsibility: one queue, one drainer,
// no recycling, no subprocess.
type SaveQueue struct {
	logger *slog.Logger
	jobs   chan []byte
	done   chan struct{}
	write  func(bytes []byte) error
}

// NewSaveQueue builds a SaveQueue with the given backlog depth. write
// is called with each queued snapshot's encoded bytes; it is the
// caller's persistence.Save (or equivalent) function.
func NewSaveQueue(depth int, write func(bytes []byte) error, logger *slog.Logger) *SaveQueue {
	return &SaveQueue{
		logger: logger,
		jobs:   make(chan []byte, depth),
		done:   make(chan struct{}),
		write:  write,
	}
}

// Start launches the drain goroutine. Safe to call once.
func (q *SaveQueue) Start() {
	go q.drain()
}

// Enqueue submits bytes for asynchronous persistence. If the queue is
// full, the save is dropped — a later snapshot will supersede it, and
// EncodeSnapshot's caching means no data is lost, only a disk write is
// skipped (spec.md §4.2's save is explicitly best-effort).
func (q *SaveQueue) Enqueue(bytes []byte) {
	select {
	case q.jobs <- bytes:
	default:
		if q.logger != nil {
			q.logger.Warn("save queue full, dropping snapshot write")
		}
	}
}

// Stop closes the queue and waits for the drain goroutine to finish
// processing whatever is already buffered.
func (q *SaveQueue) Stop() {
	close(q.jobs)
	<-q.done
}

func (q *SaveQueue) drain() {
	defer close(q.done)
	for bytes := range q.jobs {
		if err := q.write(bytes); err != nil && q.logger != nil {
			q.logger.Error("snapshot save failed", "error", err)
		}
	}
}
