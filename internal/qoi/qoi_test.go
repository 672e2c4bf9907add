package qoi

import (
	"bytes"
	"testing"
)

func solidBuffer(w, h int, r, g, b, a byte) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3] = r, g, b, a
	}
	return buf
}

func TestEncodeDecodeRoundtripSolid(t *testing.T) {
	w, h := 4, 4
	src := solidBuffer(w, h, 0, 0, 0, 255)
	enc, err := Encode(src, w, h)
	if err != nil {
		t.Fatal(err)
	}
	dec, gw, gh, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if gw != w || gh != h {
		t.Fatalf("dims mismatch: got %dx%d want %dx%d", gw, gh, w, h)
	}
	if !bytes.Equal(dec, src) {
		t.Fatalf("roundtrip mismatch for solid buffer")
	}
}

func TestEncodeDecodeRoundtripVaried(t *testing.T) {
	w, h := 8, 8
	src := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		src[i*4] = byte(i * 3)
		src[i*4+1] = byte(i * 7)
		src[i*4+2] = byte(i * 11)
		// alternate full alpha and partial alpha to exercise RGBA chunks.
		if i%5 == 0 {
			src[i*4+3] = byte(50 + i)
		} else {
			src[i*4+3] = 255
		}
	}
	enc, err := Encode(src, w, h)
	if err != nil {
		t.Fatal(err)
	}
	dec, _, _, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Fatalf("roundtrip mismatch for varied buffer")
	}
}

func TestEncodeDecodeRoundtripRepeatedIndex(t *testing.T) {
	w, h := 10, 10
	src := make([]byte, w*h*4)
	palette := [][4]byte{{10, 20, 30, 255}, {40, 50, 60, 255}, {70, 80, 90, 200}}
	for i := 0; i < w*h; i++ {
		p := palette[i%len(palette)]
		src[i*4], src[i*4+1], src[i*4+2], src[i*4+3] = p[0], p[1], p[2], p[3]
	}
	enc, err := Encode(src, w, h)
	if err != nil {
		t.Fatal(err)
	}
	dec, _, _, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Fatalf("roundtrip mismatch for repeated-index buffer")
	}
}

func TestEncodeRejectsMismatchedBufferLength(t *testing.T) {
	if _, err := Encode(make([]byte, 3), 2, 2); err == nil {
		t.Error("expected error for mismatched buffer length")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, _, _, err := Decode([]byte("not a qoi image at all")); err != ErrInvalidHeader {
		t.Errorf("expected ErrInvalidHeader, got %v", err)
	}
}
