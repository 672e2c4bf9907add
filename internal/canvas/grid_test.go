package canvas

import (
	"sync"
	"testing"

	"github.com/pixelflutd/pixelflutd/internal/color"
)

func TestInBounds(t *testing.T) {
	g, err := New(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{3, 2, true},
		{4, 0, false},
		{0, 3, false},
		{-1, 0, false},
		{0, -1, false},
	}
	for _, c := range cases {
		if got := g.InBounds(c.x, c.y); got != c.want {
			t.Errorf("InBounds(%d, %d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestNewGridIsBlackWithVersionOne(t *testing.T) {
	g, err := New(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	w, h := g.Size()
	if w != 4 || h != 3 {
		t.Fatalf("Size() = %dx%d, want 4x3", w, h)
	}
	if g.Version() != 1 {
		t.Fatalf("Version() = %d, want 1", g.Version())
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.Get(x, y) != color.Black {
				t.Fatalf("cell (%d,%d) = %08x, want black", x, y, g.Get(x, y).Raw())
			}
		}
	}
}

func TestNewRejectsNonPositiveDimensions(t *testing.T) {
	if _, err := New(0, 10); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := New(10, -1); err == nil {
		t.Error("expected error for negative height")
	}
}

func TestStoreAppliesOverlayAndIncrementsVersion(t *testing.T) {
	g, err := New(10, 10)
	if err != nil {
		t.Fatal(err)
	}
	before := g.Version()

	src, _ := color.FromHex("ff0000ff")
	prev := g.Get(5, 5)
	g.Store(5, 5, prev.Overlay(src))

	if g.Version() <= before {
		t.Errorf("version did not increase: before=%d after=%d", before, g.Version())
	}
	if g.Get(5, 5) != prev.Overlay(src) {
		t.Errorf("stored value does not match overlay result")
	}
}

func TestVersionMonotonicAcrossConcurrentWriters(t *testing.T) {
	g, err := New(64, 64)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for writer := 0; writer < 4; writer++ {
		writer := writer
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				x, y := (writer*7+i)%64, (writer*13+i)%64
				g.Store(x, y, color.FromRGBA(byte(i), byte(writer), 0, 255))
			}
		}()
	}
	wg.Wait()

	if g.Version() < 1+4*200 {
		t.Errorf("expected version to have advanced by at least 800 writes, got %d", g.Version())
	}
}

func TestEncodeSnapshotReuseSemantics(t *testing.T) {
	g, err := New(8, 8)
	if err != nil {
		t.Fatal(err)
	}

	var saved [][]byte
	save := func(b []byte) { saved = append(saved, b) }

	first, reused, err := g.EncodeSnapshot(save)
	if err != nil {
		t.Fatal(err)
	}
	if reused {
		t.Error("first encode must not be reused")
	}
	if len(saved) != 1 {
		t.Fatalf("expected exactly one save call, got %d", len(saved))
	}

	second, reused, err := g.EncodeSnapshot(save)
	if err != nil {
		t.Fatal(err)
	}
	if !reused {
		t.Error("encode with no intervening write must report reused=true")
	}
	if string(second) != string(first) {
		t.Error("reused bytes must match the prior encode")
	}
	if len(saved) != 1 {
		t.Fatalf("reused encode must not trigger another save, got %d total", len(saved))
	}

	g.Store(0, 0, color.White)
	third, reused, err := g.EncodeSnapshot(save)
	if err != nil {
		t.Fatal(err)
	}
	if reused {
		t.Error("encode after a write must not be reused")
	}
	if string(third) == string(first) {
		t.Error("encode after a write should differ from the stale cached frame")
	}
	if len(saved) != 2 {
		t.Fatalf("expected a second save call after the write, got %d", len(saved))
	}
}

func TestNewFromPixelsPreservesData(t *testing.T) {
	w, h := 2, 2
	pixels := []byte{
		1, 2, 3, 255,
		4, 5, 6, 255,
		7, 8, 9, 128,
		10, 11, 12, 0,
	}
	g, err := NewFromPixels(w, h, pixels)
	if err != nil {
		t.Fatal(err)
	}
	if g.Get(1, 1) != color.FromRGBA(10, 11, 12, 0) {
		t.Errorf("unexpected cell value at (1,1): %08x", g.Get(1, 1).Raw())
	}
}
