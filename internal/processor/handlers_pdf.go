package processor

import "fmt"

func (p *Processor) processPDF(job Job, pdfBytes []byte) Outcome {
	img, err := rasterizePDFPage(pdfBytes, 0, 150)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}
	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)

	embedded, err := extractPDFPageText(pdfBytes, 0)
	if err != nil {
		embedded = ""
	}

	pngBytes, err := encodePNG(thumb)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("encode thumbnail: %w", err)}
	}

	ocrResult, ocrErr := p.ocr.Recognize(pngBytes)
	if ocrErr != nil {
		p.logger.Warn("page-1 ocr probe failed, trusting embedded text", "content_hash", job.ContentHash, "error", ocrErr)
		return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: embedded}
	}

	decision := decideOCR(embedded, ocrResult.Text, ocrResult.Quality)
	if !decision.useOCR {
		return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: embedded}
	}

	allOCR, err := p.ocrAllPages(pdfBytes)
	if err != nil {
		p.logger.Warn("full-document ocr failed, falling back to page-1 ocr", "content_hash", job.ContentHash, "error", err)
		allOCR = ocrResult.Text
	}
	return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: combineText(decision, embedded, allOCR)}
}

// ocrAllPages renders and OCRs every page of the document once the policy
// has decided embedded text cannot be trusted.
func (p *Processor) ocrAllPages(pdfBytes []byte) (string, error) {
	pageCount, err := pdfPageCount(pdfBytes)
	if err != nil {
		return "", err
	}

	result := ""
	for page := 0; page < pageCount; page++ {
		img, err := rasterizePDFPage(pdfBytes, page, 150)
		if err != nil {
			continue
		}
		pngBytes, err := encodePNG(img)
		if err != nil {
			continue
		}
		ocrResult, err := p.ocr.Recognize(pngBytes)
		if err != nil {
			continue
		}
		if result != "" {
			result += "\n\n"
		}
		result += ocrResult.Text
	}
	return result, nil
}

// processCAD converts a dwg/dxf through the CAD sidecar, then treats the
// resulting PDF as a generated PDF: content-aware crop at high DPI, embedded
// text only, OCR never invoked.
func (p *Processor) processCAD(job Job, inputPath string) Outcome {
	pdfBytes, err := p.cad.ConvertToPDF(inputPath, job.OriginalExtension)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}

	img, err := rasterizePDFPage(pdfBytes, 0, float64(p.cfg.DWGIntermediateDPI))
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("rasterize converted pdf: %w", err)}
	}
	cropped := ContentAwareCrop(img, p.cfg.DWGWhiteThreshold)

	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(cropped, w, h, p.cfg.ThumbnailCropTop)

	text, err := extractPDFAllText(pdfBytes)
	if err != nil {
		text = ""
	}

	return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: text}
}

// processGeneratedPDF handles the office-document path once an external
// engine has already produced a deterministic PDF: thumbnail via cover-crop,
// embedded text only.
func (p *Processor) processGeneratedPDF(job Job, pdfBytes []byte) Outcome {
	img, err := rasterizePDFPage(pdfBytes, 0, 150)
	if err != nil {
		return Outcome{Success: false, Err: err}
	}
	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)

	text, err := extractPDFAllText(pdfBytes)
	if err != nil {
		text = ""
	}
	return Outcome{Success: true, ThumbnailImage: thumb, ExtractedText: text}
}
