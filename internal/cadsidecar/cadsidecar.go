// Package cadsidecar implements the long-lived (or ephemeral, per
// Orchestrator config) CAD-to-PDF converter: it polls its exchange
// directory for `{id}.convert` signals, shells out to an ODA-compatible
// converter binary per request, and writes `{id}.pdf` + `{id}.done` or
// `{id}.failed`.
package cadsidecar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"os/exec"

	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
)

// Sidecar holds the exchange directory and the path to the converter binary.
type Sidecar struct {
	exchangeDir    string
	converterPath  string
	convertTimeout time.Duration
	logger         *logging.Logger
}

// New builds a Sidecar wired to the exchange volume.
func New(exchangeDir, converterPath string, logger *logging.Logger) *Sidecar {
	return &Sidecar{
		exchangeDir:    exchangeDir,
		converterPath:  converterPath,
		convertTimeout: 300 * time.Second,
		logger:         logger,
	}
}

// PollOnce converts every pending `.convert` request, returning the count
// processed.
func (s *Sidecar) PollOnce() int {
	requests, err := marker.ListByExt(s.exchangeDir, ".convert")
	if err != nil {
		s.logger.Error("failed to list cad requests", "error", err)
		return 0
	}
	for _, name := range requests {
		s.processRequest(strings.TrimSuffix(name, ".convert"))
	}
	return len(requests)
}

func (s *Sidecar) processRequest(id string) {
	convertMarker := filepath.Join(s.exchangeDir, id+".convert")
	defer os.Remove(convertMarker)

	inputName, err := os.ReadFile(convertMarker)
	if err != nil {
		s.writeFailed(id, err)
		return
	}
	inputPath := filepath.Join(s.exchangeDir, strings.TrimSpace(string(inputName)))

	pdfPath, err := s.convert(id, inputPath)
	if err != nil {
		s.writeFailed(id, err)
		return
	}

	dest := filepath.Join(s.exchangeDir, id+".pdf")
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		s.writeFailed(id, fmt.Errorf("read converted pdf: %w", err))
		return
	}
	if err := marker.WriteAtomic(dest, data, 0o644); err != nil {
		s.writeFailed(id, fmt.Errorf("stage converted pdf: %w", err))
		return
	}
	if err := marker.Touch(filepath.Join(s.exchangeDir, id+".done")); err != nil {
		s.logger.Error("failed to write cad done marker", "job_id", id, "error", err)
		return
	}
	s.logger.Info("cad conversion complete", "job_id", id)
}

// convert isolates the input in its own scratch input/output folder pair,
// since the ODA-family converter operates on whole directories rather than
// single files, then shells out with auto-fit/auto-orientation flags.
func (s *Sidecar) convert(id, inputPath string) (string, error) {
	if _, err := os.Stat(s.converterPath); err != nil {
		return "", fmt.Errorf("cad converter not found at %s", s.converterPath)
	}

	scratchRoot := filepath.Dir(inputPath)
	inDir := filepath.Join(scratchRoot, "in_"+id)
	outDir := filepath.Join(scratchRoot, "out_"+id)
	if err := os.MkdirAll(inDir, 0o755); err != nil {
		return "", fmt.Errorf("create input scratch dir: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output scratch dir: %w", err)
	}
	defer os.RemoveAll(inDir)
	defer os.RemoveAll(outDir)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("read staged input: %w", err)
	}
	stagedInput := filepath.Join(inDir, filepath.Base(inputPath))
	if err := os.WriteFile(stagedInput, data, 0o644); err != nil {
		return "", fmt.Errorf("copy input into scratch dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.convertTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.converterPath,
		inDir, outDir, "ACAD2018", "PDF", "0", "0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("oda converter failed: %w: %s", err, firstLine(string(output)))
	}

	base := filepath.Base(inputPath)
	expected := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(expected); err == nil {
		return copyToScratch(scratchRoot, id, expected)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".pdf") {
			return copyToScratch(scratchRoot, id, filepath.Join(outDir, e.Name()))
		}
	}
	return "", fmt.Errorf("converter produced no pdf output")
}

// copyToScratch moves the converted PDF out of the about-to-be-removed
// output scratch dir before the caller's deferred cleanup fires.
func copyToScratch(scratchRoot, id, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(scratchRoot, id+"_converted.pdf")
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func (s *Sidecar) writeFailed(id string, err error) {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	s.logger.Error("cad conversion failed", "job_id", id, "error", err)
	if werr := marker.WriteMarker(filepath.Join(s.exchangeDir, id+".failed"), []byte(msg)); werr != nil {
		s.logger.Error("failed to write cad failure marker", "job_id", id, "error", werr)
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
