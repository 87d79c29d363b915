package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jorineg/thumbextract/internal/jobmodel"
	"github.com/jorineg/thumbextract/internal/marker"
)

// ocrClient talks to the long-lived OCR Sidecar over the shared exchange
// volume: write {id}.png + {id}.request, poll for {id}.result or
// {id}.failed, clean up the slot when done.
type ocrClient struct {
	exchangeDir string
	timeout     time.Duration
	pollEvery   time.Duration
}

func newOCRClient(exchangeDir string) *ocrClient {
	return &ocrClient{exchangeDir: exchangeDir, timeout: 300 * time.Second, pollEvery: 100 * time.Millisecond}
}

// Recognize submits one PNG image for OCR and blocks for the sidecar's
// response, enforcing the 300s request timeout the spec assigns the caller.
func (c *ocrClient) Recognize(pngBytes []byte) (jobmodel.OCRResult, error) {
	id := uuid.NewString()
	imgPath := filepath.Join(c.exchangeDir, id+".png")
	reqPath := filepath.Join(c.exchangeDir, id+".request")
	resultPath := filepath.Join(c.exchangeDir, id+".result")
	failedPath := filepath.Join(c.exchangeDir, id+".failed")

	defer func() {
		os.Remove(imgPath)
		os.Remove(resultPath)
		os.Remove(failedPath)
	}()

	if err := marker.WriteAtomic(imgPath, pngBytes, 0o644); err != nil {
		return jobmodel.OCRResult{}, fmt.Errorf("ocr: write image: %w", err)
	}
	req := jobmodel.OCRRequest{JobID: id, ImageFile: id + ".png"}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return jobmodel.OCRResult{}, err
	}
	if err := marker.WriteMarker(reqPath, reqJSON); err != nil {
		return jobmodel.OCRResult{}, fmt.Errorf("ocr: write request: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	for time.Now().Before(deadline) {
		if marker.Exists(resultPath) {
			raw, err := os.ReadFile(resultPath)
			if err != nil {
				return jobmodel.OCRResult{}, fmt.Errorf("ocr: read result: %w", err)
			}
			var result jobmodel.OCRResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return jobmodel.OCRResult{}, fmt.Errorf("ocr: parse result: %w", err)
			}
			return result, nil
		}
		if marker.Exists(failedPath) {
			raw, _ := os.ReadFile(failedPath)
			return jobmodel.OCRResult{}, fmt.Errorf("ocr sidecar reported failure: %s", string(raw))
		}
		time.Sleep(c.pollEvery)
	}
	return jobmodel.OCRResult{}, fmt.Errorf("ocr: timed out waiting for sidecar after %v", c.timeout)
}
