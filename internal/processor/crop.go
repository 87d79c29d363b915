package processor

import (
	"image"

	"github.com/disintegration/imaging"
)

// CoverCrop fits src to fill a (w, h) rectangle, cropping overflow, then
// resizes with a Lanczos-class filter. When the source is wider than the
// target aspect ratio, the full height is kept and width is cropped
// centered; otherwise the full width is kept and height is cropped, with
// the vertical anchor controlled by cropTop.
func CoverCrop(src image.Image, w, h int, cropTop bool) image.Image {
	bounds := src.Bounds()
	W, H := bounds.Dx(), bounds.Dy()
	if W <= 0 || H <= 0 || w <= 0 || h <= 0 {
		return src
	}

	targetRatio := float64(w) / float64(h)
	srcRatio := float64(W) / float64(H)

	var cropRect image.Rectangle
	if srcRatio > targetRatio {
		cropW := int(float64(H) * targetRatio)
		x0 := bounds.Min.X + (W-cropW)/2
		cropRect = image.Rect(x0, bounds.Min.Y, x0+cropW, bounds.Min.Y+H)
	} else {
		cropH := int(float64(W) / targetRatio)
		var y0 int
		if cropTop {
			y0 = bounds.Min.Y
		} else {
			y0 = bounds.Min.Y + (H-cropH)/2
		}
		cropRect = image.Rect(bounds.Min.X, y0, bounds.Min.X+W, y0+cropH)
	}

	cropped := imaging.Crop(src, cropRect)
	return imaging.Resize(cropped, w, h, imaging.Lanczos)
}
