// Package command implements CommandEngine, the per-connection protocol
// state machine described in spec.md §4.3: a text line mode and a
// binary frame mode that both write through to a shared canvas.Grid.
package command

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/color"
	"github.com/pixelflutd/pixelflutd/internal/protocol"
)

const helpText = "" +
	"Commands:\n" +
	"  PX x y            -> get pixel color\n" +
	"  PX x y RRGGBB[AA] -> set pixel color\n" +
	"  SIZE              -> canvas dimensions\n" +
	"  BIN               -> switch to binary frame mode\n" +
	"  DEBUG             -> toggle PX set acknowledgements\n" +
	"  HELP              -> this message\n" +
	"  EXIT              -> close the connection\n"

const (
	errMissingX       = "ERR: Missing X\n"
	errMissingY       = "ERR: Missing Y\n"
	errZeroBasedIndex = "ERR: 0 based index...\n"
	errOutOfBounds    = "ERR: Out of Bounds (Tip: SIZE)\n"
	errBadNumber      = "ERR: Bad Number\n"
	errUnknownCommand = "ERR: Unknown Command\n"
	errInvalidBinLen  = "ERR: Invalid Binary Length\n"
)

// Engine runs the per-connection state machine for one pixel-flood
// client: read a command (text line, or binary frame once BIN has been
// sent), validate and apply it against the shared grid, write any
// reply. One Engine is constructed per accepted connection by
// internal/ingress.
type Engine struct {
	grid   *canvas.Grid
	r      *bufio.Reader
	w      io.Writer
	log    *slog.Logger
	debug  bool
	binary bool
}

// New constructs an Engine over an already-buffered reader and a raw
// writer. The caller (TcpIngress) owns connection lifecycle; Engine
// only ever reads, writes, and reports when it wants the connection
// closed.
func New(grid *canvas.Grid, r *bufio.Reader, w io.Writer, log *slog.Logger) *Engine {
	return &Engine{grid: grid, r: r, w: w, log: log}
}

// Run processes commands until EOF, a fatal error, or an EXIT command.
// EOF and EXIT return nil; any other error is returned. It never itself
// closes the connection; the caller does that once Run returns.
func (e *Engine) Run() error {
	for {
		var err error
		if e.binary {
			err = e.stepBinary()
		} else {
			err = e.stepText()
		}
		if err != nil {
			if err == errExit || err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// errExit is a sentinel used internally to unwind Run on an EXIT
// command without treating it as a connection error.
var errExit = fmt.Errorf("command: client sent EXIT")

func (e *Engine) stepText() error {
	line, err := e.r.ReadString('\n')
	if err != nil {
		if line == "" {
			return err
		}
		// Partial final line with no trailing newline: still try to
		// process it, then surface the read error on the next call.
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "PX":
		return e.handlePX(fields[1:])
	case "SIZE":
		w, h := e.grid.Size()
		_, werr := fmt.Fprintf(e.w, "SIZE %d %d\n", w, h)
		return werr
	case "HELP":
		_, werr := io.WriteString(e.w, helpText)
		return werr
	case "DEBUG":
		e.debug = !e.debug
		return nil
	case "BIN":
		e.binary = !e.binary
		_, werr := e.w.Write(protocol.BinAck[:])
		return werr
	case "EXIT":
		if _, werr := io.WriteString(e.w, "EXITING\n"); werr != nil {
			return werr
		}
		return errExit
	default:
		_, werr := io.WriteString(e.w, errUnknownCommand)
		return werr
	}
}

func (e *Engine) handlePX(args []string) error {
	if len(args) < 1 {
		_, err := io.WriteString(e.w, errMissingX)
		return err
	}
	if len(args) < 2 {
		_, err := io.WriteString(e.w, errMissingY)
		return err
	}

	x, ok, err := parseCoord(args[0])
	if err != nil {
		return err
	}
	if !ok {
		_, werr := io.WriteString(e.w, errBadNumber)
		return werr
	}
	y, ok, err := parseCoord(args[1])
	if err != nil {
		return err
	}
	if !ok {
		_, werr := io.WriteString(e.w, errBadNumber)
		return werr
	}

	width, height := e.grid.Size()
	if verr := e.validateBounds(x, y, width, height); verr != "" {
		_, werr := io.WriteString(e.w, verr)
		return werr
	}

	if len(args) == 2 {
		current := e.grid.Get(x, y)
		_, werr := fmt.Fprintf(e.w, "PX %d %d %s\n", x, y, current.ToHex())
		return werr
	}

	src, perr := color.FromHex(args[2])
	if perr != nil {
		_, werr := io.WriteString(e.w, errBadNumber)
		return werr
	}

	current := e.grid.Get(x, y)
	next := current.Overlay(src)
	if next != current {
		e.grid.Store(x, y, next)
	}

	if e.debug {
		_, werr := fmt.Fprintf(e.w, "PX %d %d %s\n", x, y, next.ToHex())
		return werr
	}
	return nil
}

// parseCoord parses a decimal coordinate. ok is false on a malformed
// number (caller replies ERR: Bad Number). parseCoord does no I/O, so
// err is always nil.
func parseCoord(s string) (v int, ok bool, err error) {
	n, perr := strconv.ParseUint(s, 10, 32)
	if perr != nil {
		return 0, false, nil
	}
	return int(n), true, nil
}

// validateBounds implements spec.md §4.3's ordered coordinate checks,
// returning the wire error string to send, or "" if in bounds.
func (e *Engine) validateBounds(x, y, width, height int) string {
	if x == width || y == height {
		return errZeroBasedIndex
	}
	if !e.grid.InBounds(x, y) {
		return errOutOfBounds
	}
	return ""
}

func (e *Engine) stepBinary() error {
	frame, err := protocol.ReadPixelFrame(e.r)
	if err != nil {
		if err == protocol.ErrShortFrame {
			if _, werr := io.WriteString(e.w, errInvalidBinLen); werr != nil {
				return werr
			}
			return nil
		}
		return err
	}

	width, height := e.grid.Size()
	x, y := int(frame.X), int(frame.Y)
	if verr := e.validateBounds(x, y, width, height); verr != "" {
		_, werr := io.WriteString(e.w, verr)
		return werr
	}

	current := e.grid.Get(x, y)
	next := current.Overlay(frame.Color)
	if next != current {
		e.grid.Store(x, y, next)
	}
	return nil
}
