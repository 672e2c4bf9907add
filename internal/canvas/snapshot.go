package canvas

import "github.com/pixelflutd/pixelflutd/internal/qoi"

// EncodeSnapshot implements the PixelGrid.encode_snapshot() contract of
// spec.md §4.2: compare the current version against the cached frame's
// version_at_encode; if equal, return the cached bytes with reused=true.
// Otherwise iterate all cells, encode to QOI, install the new cache
// keyed on the version read *before* iteration began (conservative: a
// write racing the encode forces a re-encode next call instead of being
// silently missed), and hand the encoded bytes to onSave for best-effort
// asynchronous persistence.
//
// onSave may be nil; it is called at most once per non-reused encode,
// synchronously on the encoding goroutine. Moving the disk write off
// that goroutine is left to onSave itself (production wiring passes
// internal/taskpool.SaveQueue's Enqueue) so a slow disk never blocks a
// pixel-flood or viewer connection.
func (g *Grid) EncodeSnapshot(onSave func(bytes []byte)) (bytes []byte, reused bool, err error) {
	versionBefore := g.Version()

	if cached := g.Snapshot(); cached != nil && cached.Version == versionBefore {
		return cached.Bytes, true, nil
	}

	raw := g.RawRGBA()
	encoded, err := qoi.Encode(raw, g.width, g.height)
	if err != nil {
		// Codec error: abort the snapshot, previous cached frame (if any)
		// remains valid, viewers see no change. Caller logs once per §7.
		if cached := g.Snapshot(); cached != nil {
			return cached.Bytes, true, err
		}
		return nil, false, err
	}

	g.installSnapshot(&Snapshot{Version: versionBefore, Bytes: encoded})

	if onSave != nil {
		onSave(encoded)
	}

	return encoded, false, nil
}
