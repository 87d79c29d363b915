package processor

import (
	"archive/zip"
	"bytes"
	"io"
)

// archiveThumbnailCandidates are searched in order inside any unknown
// format that happens to be a valid zip container (Office Open XML,
// OpenDocument, and various app bundle formats all qualify).
var archiveThumbnailCandidates = []string{
	"Thumbnails/thumbnail.jpg", "Thumbnails/thumbnail.png",
	"Thumbnails/Preview.jpg", "Thumbnails/Preview.png",
	"QuickLook/Thumbnail.jpg", "QuickLook/Thumbnail.png",
	"preview.jpg", "preview.png",
}

// processArchiveFallback opens data as a zip and returns the first matching
// candidate thumbnail it finds, cover-cropped to size.
func (p *Processor) processArchiveFallback(job Job, data []byte) (Outcome, bool) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Outcome{}, false
	}

	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	for _, candidate := range archiveThumbnailCandidates {
		f, ok := byName[candidate]
		if !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		raw := make([]byte, f.UncompressedSize64)
		if _, err := io.ReadFull(rc, raw); err != nil {
			rc.Close()
			continue
		}
		rc.Close()

		img, err := decodeRaster(raw)
		if err != nil {
			continue
		}
		w, h := p.thumbnailDimensions(job.OriginalExtension)
		thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)
		return Outcome{Success: true, ThumbnailImage: thumb}, true
	}
	return Outcome{}, false
}
