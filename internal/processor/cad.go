package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jorineg/thumbextract/internal/marker"
)

// cadClient talks to the ephemeral/persistent CAD Sidecar over the shared
// cad-exchange volume: stage the input under {id}{ext}, drop {id}.convert,
// poll for {id}.pdf + {id}.done or {id}.failed.
type cadClient struct {
	exchangeDir string
	timeout     time.Duration
	pollEvery   time.Duration
}

func newCADClient(exchangeDir string) *cadClient {
	return &cadClient{exchangeDir: exchangeDir, timeout: 300 * time.Second, pollEvery: 200 * time.Millisecond}
}

// ConvertToPDF ships inputPath (a .dwg/.dxf file) to the CAD sidecar and
// returns the bytes of the resulting PDF.
func (c *cadClient) ConvertToPDF(inputPath, ext string) ([]byte, error) {
	id := uuid.NewString()
	stagedInput := filepath.Join(c.exchangeDir, id+ext)
	convertMarker := filepath.Join(c.exchangeDir, id+".convert")
	pdfPath := filepath.Join(c.exchangeDir, id+".pdf")
	donePath := filepath.Join(c.exchangeDir, id+".done")
	failedPath := filepath.Join(c.exchangeDir, id+".failed")

	defer func() {
		os.Remove(stagedInput)
		os.Remove(pdfPath)
		os.Remove(donePath)
		os.Remove(failedPath)
	}()

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("cad: read input: %w", err)
	}
	if err := marker.WriteAtomic(stagedInput, data, 0o644); err != nil {
		return nil, fmt.Errorf("cad: stage input: %w", err)
	}
	if err := marker.WriteMarker(convertMarker, []byte(id+ext)); err != nil {
		return nil, fmt.Errorf("cad: write convert marker: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	for time.Now().Before(deadline) {
		if marker.Exists(donePath) {
			return os.ReadFile(pdfPath)
		}
		if marker.Exists(failedPath) {
			raw, _ := os.ReadFile(failedPath)
			return nil, fmt.Errorf("cad sidecar reported failure: %s", string(raw))
		}
		time.Sleep(c.pollEvery)
	}
	return nil, fmt.Errorf("cad: timed out waiting for sidecar after %v", c.timeout)
}
