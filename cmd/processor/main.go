// Command processor is the air-gapped Format Processor entrypoint. It runs
// inside a sandbox with no network and no credentials: its entire input is
// /work/job.json and /work/input.{ext}, and its entire output is
// /work/result.json and, on success, /work/thumbnail.png. Exit code 0 iff
// result.json was written, even when the job's own outcome was a failure.
package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/jobmodel"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/processor"
)

func main() {
	cfg := config.LoadProcessorConfig()
	logger := logging.NewLogger("processor")

	meta, err := readJobMetadata(cfg.WorkDir)
	if err != nil {
		log.Fatalf("cannot read job metadata: %v", err)
	}

	inputPath, err := resolveInputPath(cfg.WorkDir, meta.OriginalExtension)
	if err != nil {
		log.Fatalf("cannot resolve input file: %v", err)
	}

	job := processor.Job{
		ContentHash:       meta.ContentHash,
		OriginalFilename:  meta.OriginalFilename,
		OriginalExtension: strings.ToLower(meta.OriginalExtension),
		InputPath:         inputPath,
	}

	p := processor.New(cfg, logger)
	if err := p.Run(job); err != nil {
		log.Fatalf("fatal processor error: %v", err)
	}

	logger.Info("processing complete", "content_hash", job.ContentHash)
}

func readJobMetadata(workDir string) (jobmodel.InputMetadata, error) {
	var meta jobmodel.InputMetadata
	data, err := os.ReadFile(filepath.Join(workDir, "job.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// resolveInputPath finds the staged input file. The Orchestrator names it
// input{ext}; this also tolerates a bare "input.bin" for robustness against
// a missing/unknown original extension.
func resolveInputPath(workDir, ext string) (string, error) {
	candidates := []string{
		filepath.Join(workDir, "input"+ext),
		filepath.Join(workDir, "input.bin"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", os.ErrNotExist
}
