package processor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ContentAwareCrop localizes a CAD drawing within a mostly-white page before
// the cover-crop/resize step runs. It grayscales the page, marks pixels
// below whiteThreshold as "content", finds gap splits along each axis, and
// picks the row/col region pair containing the most content before
// expanding the resulting rectangle by a 2% margin.
func ContentAwareCrop(src image.Image, whiteThreshold int) image.Image {
	gray := imaging.Grayscale(src)
	bounds := gray.Bounds()
	W, H := bounds.Dx(), bounds.Dy()
	if W == 0 || H == 0 {
		return src
	}

	rowHasContent := make([]bool, H)
	colHasContent := make([]bool, W)
	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			c := color.GrayModel.Convert(gray.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if int(c.Y) < whiteThreshold {
				rowHasContent[y] = true
				colHasContent[x] = true
			}
		}
	}

	rowRegions := regionsFromGaps(rowHasContent)
	colRegions := regionsFromGaps(colHasContent)
	if len(rowRegions) == 0 || len(colRegions) == 0 {
		return src
	}

	var best image.Rectangle
	bestCount := -1
	if len(rowRegions) == 1 && len(colRegions) == 1 {
		best = image.Rect(colRegions[0][0], rowRegions[0][0], colRegions[0][1], rowRegions[0][1])
	} else {
		for _, rr := range rowRegions {
			for _, cr := range colRegions {
				count := countContent(gray, bounds, rr[0], rr[1], cr[0], cr[1], whiteThreshold)
				if count > bestCount {
					bestCount = count
					best = image.Rect(cr[0], rr[0], cr[1], rr[1])
				}
			}
		}
	}

	marginX := int(float64(best.Dx()) * 0.02)
	marginY := int(float64(best.Dy()) * 0.02)
	best = image.Rect(best.Min.X-marginX, best.Min.Y-marginY, best.Max.X+marginX, best.Max.Y+marginY)
	best = best.Intersect(image.Rect(0, 0, W, H))
	if best.Empty() {
		return src
	}

	absRect := image.Rect(bounds.Min.X+best.Min.X, bounds.Min.Y+best.Min.Y, bounds.Min.X+best.Max.X, bounds.Min.Y+best.Max.Y)
	return imaging.Crop(src, absRect)
}

// regionsFromGaps finds maximal runs of true in hasContent, splitting on
// "gaps" (maximal runs of false) whose length is at least 15% of the
// overall content span (first true to last true).
func regionsFromGaps(hasContent []bool) [][2]int {
	first, last := -1, -1
	for i, v := range hasContent {
		if v {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return nil
	}
	span := last - first + 1
	minGap := int(float64(span) * 0.15)

	var regions [][2]int
	regionStart := first
	gapStart := -1
	for i := first; i <= last; i++ {
		if !hasContent[i] {
			if gapStart == -1 {
				gapStart = i
			}
			continue
		}
		if gapStart != -1 {
			if i-gapStart >= minGap {
				regions = append(regions, [2]int{regionStart, gapStart})
				regionStart = i
			}
			gapStart = -1
		}
	}
	regions = append(regions, [2]int{regionStart, last + 1})
	return regions
}

func countContent(gray image.Image, bounds image.Rectangle, y0, y1, x0, x1, whiteThreshold int) int {
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c := color.GrayModel.Convert(gray.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if int(c.Y) < whiteThreshold {
				count++
			}
		}
	}
	return count
}
