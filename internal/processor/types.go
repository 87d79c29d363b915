// Package processor implements the air-gapped Format Processor: format
// dispatch by original-filename extension, thumbnail cropping/resizing, text
// extraction, and the OCR policy decision tree. It never touches the
// network or a database; its entire world is /work, /cad-exchange and
// /ocr-exchange.
package processor

import (
	"image"

	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/logging"
)

// Job is the processor's view of one unit of work, built from job.json plus
// the resolved path of the input file on disk.
type Job struct {
	ContentHash       string
	OriginalFilename  string
	OriginalExtension string
	InputPath         string
}

// Outcome is what Process returns; Processor.Run folds it into
// jobmodel.ProcessorResult and writes thumbnail.png when ThumbnailImage is set.
type Outcome struct {
	Success        bool
	ThumbnailImage image.Image
	ExtractedText  string
	Err            error
}

// Processor holds the processor-local configuration and collaborators
// (CAD/OCR sidecar exchange clients) needed to handle any supported format.
type Processor struct {
	cfg    *config.ProcessorConfig
	logger *logging.Logger
	ocr    *ocrClient
	cad    *cadClient
}

// New builds a Processor wired to the exchange volumes named in cfg.
func New(cfg *config.ProcessorConfig, logger *logging.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		logger: logger,
		ocr:    newOCRClient(cfg.OCRExchangeDir),
		cad:    newCADClient(cfg.CADExchangeDir),
	}
}

// generatedPDFOrigins lists source extensions whose PDF is produced by a
// deterministic converter: embedded text is trusted, OCR is never run.
var generatedPDFOrigins = map[string]struct{}{
	".dwg": {}, ".dxf": {},
	".xlsx": {}, ".xls": {}, ".xlsm": {}, ".ods": {},
	".docx": {}, ".doc": {}, ".docm": {}, ".odt": {},
	".pptx": {}, ".ppt": {}, ".pptm": {}, ".odp": {},
	".pages": {}, ".numbers": {}, ".key": {},
}

var rasterExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".bmp": {}, ".tif": {}, ".tiff": {}, ".heic": {}, ".heif": {},
}

var officeExts = map[string]struct{}{
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".odt": {}, ".ods": {}, ".odp": {}, ".pages": {}, ".numbers": {}, ".key": {},
	".docm": {}, ".xlsm": {}, ".pptm": {},
}

var cadExts = map[string]struct{}{".dwg": {}, ".dxf": {}}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {}, ".m4v": {},
}

var plainTextExts = map[string]struct{}{
	".txt": {}, ".json": {}, ".xml": {}, ".md": {}, ".csv": {}, ".yaml": {},
	".yml": {}, ".ini": {}, ".log": {}, ".go": {}, ".py": {}, ".js": {},
	".ts": {}, ".java": {}, ".c": {}, ".cpp": {}, ".h": {}, ".sh": {},
}
