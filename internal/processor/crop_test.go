package processor

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return img
}

func TestCoverCropExactDimensions(t *testing.T) {
	cases := []struct{ srcW, srcH, w, h int }{
		{1200, 900, 400, 300},
		{300, 900, 400, 300},
		{900, 300, 400, 300},
		{400, 300, 400, 300},
	}
	for _, c := range cases {
		out := CoverCrop(solidImage(c.srcW, c.srcH), c.w, c.h, false)
		b := out.Bounds()
		if b.Dx() != c.w || b.Dy() != c.h {
			t.Fatalf("src %dx%d -> got %dx%d, want %dx%d", c.srcW, c.srcH, b.Dx(), b.Dy(), c.w, c.h)
		}
	}
}

func TestCoverCropIdempotentOnMatchingAspect(t *testing.T) {
	src := solidImage(400, 300)
	once := CoverCrop(src, 400, 300, false)
	twice := CoverCrop(once, 400, 300, false)
	b1, b2 := once.Bounds(), twice.Bounds()
	if b1 != b2 {
		t.Fatalf("cover-crop not idempotent: %v vs %v", b1, b2)
	}
}

func TestCoverCropTopVsCenterAnchor(t *testing.T) {
	src := solidImage(300, 900)
	top := CoverCrop(src, 300, 300, true)
	center := CoverCrop(src, 300, 300, false)
	if top.Bounds() != center.Bounds() {
		t.Fatalf("both anchors should still produce target dims")
	}
}
