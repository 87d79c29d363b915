// Package ocrsidecar implements the long-lived OCR engine: it loads its
// wordlist once at startup, then polls its exchange directory for
// `{id}.request` files, running one request at a time (the model is not
// re-entrant) and scoring output quality against that wordlist. A new
// Tesseract client is created for each request; no engine instance is kept
// between requests. The wordlist is read from a configured file; there is
// no built-in list, and without one every quality score is 0.5.
package ocrsidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jorineg/thumbextract/internal/jobmodel"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
	"github.com/otiai10/gosseract/v2"
)

// Sidecar holds the exchange directory and the wordlist used for quality
// scoring. It has no network or database credentials.
type Sidecar struct {
	exchangeDir string
	lang        string
	wordlist    map[string]struct{}
	logger      *logging.Logger
}

// New builds a Sidecar, loading the wordlist (if present) once at startup.
func New(exchangeDir, lang, wordlistPath string, logger *logging.Logger) (*Sidecar, error) {
	wordlist, err := loadWordlist(wordlistPath)
	if err != nil {
		logger.Warn("wordlist not loaded, quality scores default to 0.5", "path", wordlistPath, "error", err)
		wordlist = nil
	} else {
		logger.Info("wordlist loaded", "path", wordlistPath, "word_count", len(wordlist))
	}
	return &Sidecar{exchangeDir: exchangeDir, lang: lang, wordlist: wordlist, logger: logger}, nil
}

func loadWordlist(path string) (map[string]struct{}, error) {
	if path == "" {
		return nil, fmt.Errorf("no wordlist path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = struct{}{}
		}
	}
	return set, nil
}

// PollOnce processes every pending `.request` in directory-listing order,
// one request at a time since the underlying engine is not re-entrant. It
// returns the number processed so the caller can skip its sleep when there
// is more work to look for immediately.
func (s *Sidecar) PollOnce() int {
	requests, err := marker.ListByExt(s.exchangeDir, ".request")
	if err != nil {
		s.logger.Error("failed to list ocr requests", "error", err)
		return 0
	}
	for _, name := range requests {
		s.processRequest(filepath.Join(s.exchangeDir, name))
	}
	return len(requests)
}

func (s *Sidecar) processRequest(requestPath string) {
	id := strings.TrimSuffix(filepath.Base(requestPath), ".request")
	defer os.Remove(requestPath)

	raw, err := os.ReadFile(requestPath)
	if err != nil {
		s.writeFailed(id, err)
		return
	}
	var req jobmodel.OCRRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeFailed(id, err)
		return
	}

	imagePath := filepath.Join(s.exchangeDir, req.ImageFile)
	if _, err := os.Stat(imagePath); err != nil {
		s.writeFailed(id, fmt.Errorf("image not found: %s", imagePath))
		return
	}

	start := time.Now()
	text, confidence, err := s.recognize(imagePath)
	if err != nil {
		s.writeFailed(id, err)
		return
	}

	quality := s.computeQuality(text)
	result := jobmodel.OCRResult{
		Text:       text,
		Confidence: confidence,
		Quality:    quality,
		WordCount:  len(strings.Fields(text)),
		CharCount:  len(text),
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.writeFailed(id, err)
		return
	}
	if err := marker.WriteMarker(filepath.Join(s.exchangeDir, id+".result"), resultJSON); err != nil {
		s.logger.Error("failed to write ocr result", "job_id", id, "error", err)
		return
	}
	s.logger.Info("ocr complete", "job_id", id, "chars", len(text), "quality", quality, "duration_ms", time.Since(start).Milliseconds())
}

func (s *Sidecar) recognize(imagePath string) (text string, confidence float64, err error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(s.lang, "+")...); err != nil {
		return "", 0, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}

	text, err = client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract recognize: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return text, 0.5, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return text, sum / float64(len(boxes)) / 100.0, nil
}

// computeQuality scores recognized/checkable where checkable is the set of
// lowercased, punctuation-stripped tokens of length >= 3 that are purely
// alphabetic. Fewer than 3 such tokens is treated as insufficient evidence.
func (s *Sidecar) computeQuality(text string) float64 {
	if len(s.wordlist) == 0 || text == "" {
		return 0.5
	}

	var checkable []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'-")
		if len(w) < 3 {
			continue
		}
		if isAlpha(w) {
			checkable = append(checkable, w)
		}
	}
	if len(checkable) < 3 {
		return 0.5
	}

	recognized := 0
	for _, w := range checkable {
		if _, ok := s.wordlist[w]; ok {
			recognized++
		}
	}
	return float64(recognized) / float64(len(checkable))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return len(s) > 0
}

func (s *Sidecar) writeFailed(id string, err error) {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	s.logger.Error("ocr request failed", "job_id", id, "error", err)
	if werr := marker.WriteMarker(filepath.Join(s.exchangeDir, id+".failed"), []byte(msg)); werr != nil {
		s.logger.Error("failed to write ocr failure marker", "job_id", id, "error", werr)
	}
}
