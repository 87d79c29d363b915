package processor

import (
	"fmt"
	"os"
	"strings"
)

// Process runs the format-specific pipeline for one job and returns the
// outcome that Run will fold into /work/result.json. An unsupported format
// is not an error: it returns Success=true with both outputs empty.
func (p *Processor) Process(job Job) Outcome {
	data, err := os.ReadFile(job.InputPath)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("read input: %w", err)}
	}

	ext := strings.ToLower(job.OriginalExtension)

	switch {
	case inSet(ext, rasterExts):
		// HEIC/HEIF have no decoder here; when decoding fails they continue
		// to the fallbacks below instead of failing the job.
		outcome := p.processRaster(job, data)
		if outcome.Success || (ext != ".heic" && ext != ".heif") {
			return outcome
		}

	case ext == ".pdf":
		// A PDF submitted directly always runs the full OCR policy; only
		// PDFs produced internally by the office/CAD conversion chain are
		// treated as generated (see processOffice/processCAD).
		return p.processPDF(job, data)

	case inSet(ext, cadExts):
		return p.processCAD(job, job.InputPath)

	case inSet(ext, officeExts):
		return p.processOffice(job, job.InputPath)

	case ext == ".svg":
		return p.processSVG(job, job.InputPath)

	case inSet(ext, videoExts):
		return p.processVideo(job, job.InputPath)

	case inSet(ext, plainTextExts):
		return p.processPlainText(data)
	}

	if outcome, ok := p.processArchiveFallback(job, data); ok {
		return outcome
	}
	if outcome, ok := p.processOLEFallback(job, data); ok {
		return outcome
	}
	if outcome, ok := p.processUnknownTextFallback(data); ok {
		return outcome
	}

	// Unknown, unsupported format: success with no derived artifacts.
	return Outcome{Success: true}
}

func inSet(ext string, set map[string]struct{}) bool {
	_, ok := set[ext]
	return ok
}
