package sanitize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailPreservesDimensions(t *testing.T) {
	raw := encodeTestPNG(t, 400, 300)
	out, w, h, err := Thumbnail(raw, 1<<20)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if w != 400 || h != 300 {
		t.Fatalf("got %dx%d, want 400x300", w, h)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode sanitized output: %v", err)
	}
	b := decoded.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("decoded bounds mismatch: %v", b)
	}
}

func TestThumbnailRejectsOversized(t *testing.T) {
	raw := encodeTestPNG(t, 10, 10)
	_, _, _, err := Thumbnail(raw, 1)
	if err == nil {
		t.Fatalf("expected error for oversized input")
	}
	if _, isType := err.(*ErrThumbnailTooLarge); !isType {
		t.Fatalf("expected ErrThumbnailTooLarge, got %T: %v", err, err)
	}
}

func TestThumbnailIdempotent(t *testing.T) {
	raw := encodeTestPNG(t, 64, 48)
	once, _, _, err := Thumbnail(raw, 1<<20)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	twice, _, _, err := Thumbnail(once, 1<<20)
	if err != nil {
		t.Fatalf("Thumbnail (second pass): %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("sanitization is not idempotent")
	}
}

func TestTextStripsNulAndControlChars(t *testing.T) {
	raw := "hello\x00world\x01\x02\ttab\nline\r\nend"
	got := Text(raw, 1000)
	if strings.ContainsRune(got, 0) {
		t.Fatalf("NUL byte survived: %q", got)
	}
	if strings.ContainsRune(got, 0x01) || strings.ContainsRune(got, 0x02) {
		t.Fatalf("control chars survived: %q", got)
	}
	if !strings.Contains(got, "\ttab") || !strings.Contains(got, "\nline") {
		t.Fatalf("whitespace triad not preserved: %q", got)
	}
}

func TestTextTruncates(t *testing.T) {
	raw := strings.Repeat("a", 100)
	got := Text(raw, 10)
	if len(got) != 10 {
		t.Fatalf("got length %d, want 10", len(got))
	}
}

func TestTextIdempotent(t *testing.T) {
	raw := "plain\x00text\x07with unicode"
	once := Text(raw, 1000)
	twice := Text(once, 1000)
	if once != twice {
		t.Fatalf("sanitization is not idempotent: %q vs %q", once, twice)
	}
}

func TestTextPreservesHighUnicode(t *testing.T) {
	raw := "café 中文"
	got := Text(raw, 1000)
	if got != raw {
		t.Fatalf("expected high unicode preserved, got %q", got)
	}
}
