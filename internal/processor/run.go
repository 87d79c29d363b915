package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorineg/thumbextract/internal/jobmodel"
)

// Run executes Process for job and writes /work/result.json (and, on a
// successful run that produced a thumbnail, /work/thumbnail.png). Any
// processing failure becomes success=false in the result so the
// Orchestrator can still observe a written result file and treat it as a
// per-job failure rather than a crashed container. The only error it
// returns is a failure to write result.json itself.
func (p *Processor) Run(job Job) error {
	outcome := p.Process(job)

	result := jobmodel.ProcessorResult{ContentHash: job.ContentHash, Success: outcome.Success}

	if !outcome.Success {
		errMsg := "processing failed"
		if outcome.Err != nil {
			errMsg = outcome.Err.Error()
		}
		result.Error = &errMsg
		return p.writeResult(result)
	}

	if outcome.ExtractedText != "" {
		text := sanitizeInProcess(outcome.ExtractedText, p.cfg.MaxTextLength)
		result.ExtractedText = &text
	}

	if outcome.ThumbnailImage != nil {
		pngBytes, err := encodePNG(outcome.ThumbnailImage)
		if err != nil {
			errMsg := fmt.Sprintf("encode thumbnail: %v", err)
			result.Success = false
			result.Error = &errMsg
			return p.writeResult(result)
		}
		thumbPath := filepath.Join(p.cfg.WorkDir, "thumbnail.png")
		if err := os.WriteFile(thumbPath, pngBytes, 0o644); err != nil {
			errMsg := fmt.Sprintf("write thumbnail.png: %v", err)
			result.Success = false
			result.Error = &errMsg
			return p.writeResult(result)
		}
		name := "thumbnail.png"
		result.ThumbnailFile = &name
	}

	return p.writeResult(result)
}

func (p *Processor) writeResult(result jobmodel.ProcessorResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result.json: %w", err)
	}
	resultPath := filepath.Join(p.cfg.WorkDir, "result.json")
	if err := os.WriteFile(resultPath, data, 0o644); err != nil {
		return fmt.Errorf("write result.json: %w", err)
	}
	return nil
}

// sanitizeInProcess strips NUL bytes and truncates, the in-processor half
// of the sanitization the Uploader repeats (defense in depth: two
// independent writers of the same invariant).
func sanitizeInProcess(text string, maxLength int) string {
	clean := make([]rune, 0, len(text))
	for _, r := range text {
		if r == 0 {
			continue
		}
		clean = append(clean, r)
	}
	if len(clean) > maxLength {
		clean = clean[:maxLength]
	}
	return string(clean)
}
