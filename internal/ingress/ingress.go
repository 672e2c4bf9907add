// Package ingress implements TcpIngress, the pixel-flood listener of
// spec.md §4.4: accept TCP connections on the flood port and hand each
// one to its own command.Engine.
package ingress

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/command"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

// readBufferSize is the per-connection buffered-reader size; spec.md
// §4.3 expects a flood client to push many short lines or 8-byte
// binary frames back to back, so a buffer well above a single frame
// avoids a syscall per command.
const readBufferSize = 8192

// Ingress listens on the pixel-flood TCP port and dispatches each
// accepted connection to its own command.Engine goroutine.
type Ingress struct {
	addr    string
	grid    *canvas.Grid
	tracker *taskpool.Tracker
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New builds an Ingress bound to addr. The listener is not opened
// until Start is called.
func New(addr string, grid *canvas.Grid, tracker *taskpool.Tracker, logger *slog.Logger) *Ingress {
	return &Ingress{addr: addr, grid: grid, tracker: tracker, logger: logger}
}

// Start opens the listener and begins accepting connections in the
// background. It returns once the listener is open so the caller can
// rely on the bound address being ready.
func (in *Ingress) Start() error {
	ln, err := net.Listen("tcp", in.addr)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.listener = ln
	in.mu.Unlock()

	in.logger.Info("pixel-flood ingress listening", "address", in.addr)

	in.wg.Add(1)
	go in.acceptLoop(ln)
	return nil
}

// Stop closes the listener, causing acceptLoop to return, then waits
// for every in-flight connection goroutine to finish.
func (in *Ingress) Stop(ctx context.Context) error {
	in.mu.Lock()
	ln := in.listener
	in.mu.Unlock()

	if ln != nil {
		if err := ln.Close(); err != nil {
			in.logger.Warn("error closing ingress listener", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		in.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Ingress) acceptLoop(ln net.Listener) {
	defer in.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			in.logger.Warn("accept error", "error", err)
			continue
		}

		in.wg.Add(1)
		go in.handle(conn)
	}
}

func (in *Ingress) handle(conn net.Conn) {
	defer in.wg.Done()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("panic recovered in pixel-flood connection",
				"remote", conn.RemoteAddr(),
				"error", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	in.tracker.AcquireFlood()
	defer in.tracker.ReleaseFlood()

	r := bufio.NewReaderSize(conn, readBufferSize)
	w := bufio.NewWriterSize(conn, readBufferSize)
	defer w.Flush()

	eng := command.New(in.grid, r, flushingWriter{w}, in.logger)
	if err := eng.Run(); err != nil {
		in.logger.Debug("pixel-flood connection closed", "remote", conn.RemoteAddr(), "error", err)
	}
}

// flushingWriter flushes the underlying bufio.Writer after every
// write so a reply is never held back waiting for the buffer to fill
// — CommandEngine's replies are interactive, not bulk.
type flushingWriter struct {
	w *bufio.Writer
}

func (f flushingWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.w.Flush()
}
