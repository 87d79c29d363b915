package processor

import (
	"bytes"
	"fmt"
	"image"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeRaster decodes any of the image codecs the process registers via
// blank import (png/jpeg/gif from the standard library plus bmp/tiff/webp
// from golang.org/x/image). HEIC/HEIF has no decoder anywhere in reach of
// this module; those files fall through to the unknown-text fallback.
func decodeRaster(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode raster image: %w", err)
	}
	return img, nil
}

func (p *Processor) processRaster(job Job, data []byte) Outcome {
	img, err := decodeRaster(data)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}

	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)

	pngBytes, err := encodePNG(thumb)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("encode thumbnail: %w", err)}
	}

	var text string
	ocrResult, err := p.ocr.Recognize(pngBytes)
	if err != nil {
		p.logger.Warn("ocr request failed, continuing without text", "content_hash", job.ContentHash, "error", err)
	} else {
		text = ocrResult.Text
	}

	return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: text}
}

// thumbnailDimensions resolves the (w, h) pair per the
// THUMBNAIL_SMALL_EXTENSIONS configuration split.
func (p *Processor) thumbnailDimensions(ext string) (int, int) {
	if _, small := p.cfg.ThumbnailSmallExts[ext]; small {
		return p.cfg.ThumbnailWidth, p.cfg.ThumbnailHeight
	}
	return p.cfg.ThumbnailLargeWidth, p.cfg.ThumbnailLargeHeight
}
