// Package sanitize implements the Uploader-side output sanitization: PNG
// thumbnails are re-encoded through a fresh canvas by an independent
// encoder before they cross the trust boundary back to the object store,
// and extracted text is truncated and character-filtered.
package sanitize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// ErrThumbnailTooLarge is returned when the input PNG exceeds the
// configured maximum before sanitization is even attempted.
type ErrThumbnailTooLarge struct {
	SizeBytes int64
	MaxBytes  int64
}

func (e *ErrThumbnailTooLarge) Error() string {
	return fmt.Sprintf("thumbnail is %d bytes, exceeds max %d", e.SizeBytes, e.MaxBytes)
}

// Thumbnail re-encodes attacker-controlled PNG bytes through a fresh,
// zero-initialized canvas using an independent encoder. This is the
// security-critical step: pasting the decoded pixel buffer onto a new
// all-white canvas and re-encoding discards any private PNG chunk, EXIF
// blob, or low-bit-plane steganographic payload that a byte-for-byte copy
// would have carried through untouched. Non-square or unusual dimensions
// are accepted (logged by the caller), not rejected.
func Thumbnail(raw []byte, maxBytes int64) ([]byte, int, int, error) {
	if int64(len(raw)) > maxBytes {
		return nil, 0, 0, &ErrThumbnailTooLarge{SizeBytes: int64(len(raw)), MaxBytes: maxBytes}
	}

	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode thumbnail png: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, canvas); err != nil {
		return nil, 0, 0, fmt.Errorf("re-encode sanitized thumbnail: %w", err)
	}

	return out.Bytes(), w, h, nil
}
