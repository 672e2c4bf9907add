// Package protocol implements the wire-level codecs CommandEngine and
// RenderGateway parse off raw TCP streams: the 8-byte binary PX frame
// and the hand-rolled WebSocket handshake/frame codec (ws.go).
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/pixelflutd/pixelflutd/internal/color"
)

// PixelFrameSize is the fixed size of a binary-mode pixel frame:
// u16 x | u16 y | u32 rgba. x and y are little-endian; the color is
// sent as its R, G, B, A bytes in that order.
const PixelFrameSize = 8

// PixelFrame is a decoded binary-mode pixel write.
type PixelFrame struct {
	X, Y  uint16
	Color color.Color
}

// ErrShortFrame is returned when a binary-mode read got some, but not
// all, of a PixelFrameSize frame before EOF — "Invalid Binary Length"
// in spec.md §4.3's vocabulary.
var ErrShortFrame = errors.New("protocol: short binary frame")

// pixelFrameBufPool pools the fixed 8-byte scratch buffer
// ReadPixelFrame/WritePixelFrame use, the same pattern the teacher's
// wire.go pools its frame header buffer to avoid a per-call heap
// allocation on a path that runs millions of times a second.
var pixelFrameBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, PixelFrameSize)
		return &b
	},
}

// ReadPixelFrame reads one binary-mode pixel frame from r. A clean EOF
// before any bytes are read is returned as io.EOF (connection closed);
// a read that obtained 1–7 bytes before EOF is reported as
// ErrShortFrame.
func ReadPixelFrame(r io.Reader) (PixelFrame, error) {
	bp := pixelFrameBufPool.Get().(*[]byte)
	buf := *bp
	defer pixelFrameBufPool.Put(bp)

	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return PixelFrame{}, ErrShortFrame
		}
		return PixelFrame{}, err
	}

	return PixelFrame{
		X:     binary.LittleEndian.Uint16(buf[0:2]),
		Y:     binary.LittleEndian.Uint16(buf[2:4]),
		Color: color.Color(binary.BigEndian.Uint32(buf[4:8])),
	}, nil
}

// WritePixelFrame encodes f into w using the pooled scratch buffer.
func WritePixelFrame(w io.Writer, f PixelFrame) error {
	bp := pixelFrameBufPool.Get().(*[]byte)
	buf := *bp
	defer pixelFrameBufPool.Put(bp)

	binary.LittleEndian.PutUint16(buf[0:2], f.X)
	binary.LittleEndian.PutUint16(buf[2:4], f.Y)
	binary.BigEndian.PutUint32(buf[4:8], f.Color.Raw())

	_, err := w.Write(buf)
	return err
}

// BinAck is the exact three-byte acknowledgement sent in reply to BIN.
var BinAck = [3]byte{0xAC, 0xCE, 0x91}
