package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
)

// rasterizePDFPage renders one page of a PDF (0-indexed) at the given DPI.
func rasterizePDFPage(pdfBytes []byte, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	if page >= doc.NumPage() {
		page = doc.NumPage() - 1
	}
	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", page, err)
	}
	return img, nil
}

// extractPDFPageText returns the embedded selectable text of one page.
func extractPDFPageText(pdfBytes []byte, page int) (string, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	if page >= doc.NumPage() {
		return "", nil
	}
	return doc.Text(page)
}

// extractPDFAllText concatenates embedded text from every page.
func extractPDFAllText(pdfBytes []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// pdfPageCount returns the number of pages without rendering any of them.
func pdfPageCount(pdfBytes []byte) (int, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
