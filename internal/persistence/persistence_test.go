package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pixelflutd/pixelflutd/internal/canvas"
)

func TestLoadMissingFileFallsBackToBlank(t *testing.T) {
	g := Load(filepath.Join(t.TempDir(), "missing.qoi"), nil)
	w, h := g.Size()
	if w != canvas.DefaultWidth || h != canvas.DefaultHeight {
		t.Fatalf("fallback size = %dx%d, want %dx%d", w, h, canvas.DefaultWidth, canvas.DefaultHeight)
	}
}

func TestLoadCorruptFileFallsBackToBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.qoi")
	if err := os.WriteFile(path, []byte("not a qoi image"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := Load(path, nil)
	w, h := g.Size()
	if w != canvas.DefaultWidth || h != canvas.DefaultHeight {
		t.Fatalf("fallback size = %dx%d, want %dx%d", w, h, canvas.DefaultWidth, canvas.DefaultHeight)
	}
}

func TestSaveThenLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)

	src, err := canvas.New(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	encoded, _, err := src.EncodeSnapshot(nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := Save(path, encoded, 4, 4, src.Version()); err != nil {
		t.Fatal(err)
	}

	loaded := Load(path, nil)
	w, h := loaded.Size()
	if w != 4 || h != 4 {
		t.Fatalf("loaded size = %dx%d, want 4x4", w, h)
	}

	meta, ok := LoadMeta(path)
	if !ok {
		t.Fatal("expected metadata sidecar to be present")
	}
	if meta.Width != 4 || meta.Height != 4 {
		t.Errorf("meta dims = %dx%d, want 4x4", meta.Width, meta.Height)
	}
}
