// Package jobmodel defines the persisted Job row, its state machine, and the
// JSON schemas exchanged between pipeline stages over shared volumes.
package jobmodel

import "time"

// ProcessingStatus is the job's position in the state machine.
type ProcessingStatus string

const (
	StatusPending  ProcessingStatus = "pending"
	StatusIndexing ProcessingStatus = "indexing"
	StatusDone     ProcessingStatus = "done"
	StatusError    ProcessingStatus = "error"
)

// Job mirrors one row of the file_contents table, keyed by ContentHash.
// Derived artifacts (thumbnail, text) are addressed by ContentHash, which
// gives automatic deduplication across identical file bytes.
type Job struct {
	ContentHash          string
	StoragePath          string
	SizeBytes            int64
	FullPath             string
	TryCount             int
	ProcessingStatus     ProcessingStatus
	ThumbnailPath        string
	ExtractedText        string
	LastStatusChange      time.Time
	ThumbnailGeneratedAt *time.Time
	CreatedAt            time.Time
	DBUpdatedAt          time.Time
}

// InputMetadata is written by the Fetcher as `{hash}.json` and consumed by
// the Orchestrator and, repackaged, by the Processor as /work/job.json.
type InputMetadata struct {
	ContentHash        string `json:"content_hash"`
	StoragePath        string `json:"storage_path"`
	OriginalFilename   string `json:"original_filename"`
	OriginalExtension  string `json:"original_extension"`
	TryCount           int    `json:"try_count"`
}

// ProcessorResult is written by the Format Processor as /work/result.json.
// Exit code 0 iff this file was written, even when Success is false.
type ProcessorResult struct {
	ContentHash    string  `json:"content_hash"`
	Success        bool    `json:"success"`
	ThumbnailFile  *string `json:"thumbnail_file,omitempty"`
	ExtractedText  *string `json:"extracted_text,omitempty"`
	Error          *string `json:"error,omitempty"`
}

// DoneMetadata is the payload written into `status/{hash}.done` by the
// Orchestrator and consumed by the Uploader.
type DoneMetadata struct {
	ContentHash   string `json:"content_hash"`
	StoragePath   string `json:"storage_path"`
	TryCount      int    `json:"try_count"`
	ThumbnailFile string `json:"thumbnail_file,omitempty"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

// FailedMetadata is the payload written into `status/{hash}.failed`.
type FailedMetadata struct {
	ContentHash string `json:"content_hash"`
	StoragePath string `json:"storage_path"`
	TryCount    int    `json:"try_count"`
	Error       string `json:"error"`
}

// OCRRequest is written into the OCR exchange volume as `{id}.request`.
type OCRRequest struct {
	JobID     string `json:"job_id"`
	ImageFile string `json:"image_file"`
}

// OCRResult is written into the OCR exchange volume as `{id}.result`.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Quality    float64 `json:"quality"`
	WordCount  int     `json:"word_count"`
	CharCount  int     `json:"char_count"`
}

// NextStatus implements the state machine transition on a per-job failure.
func NextStatus(tryCount, maxRetries int) ProcessingStatus {
	if tryCount >= maxRetries {
		return StatusError
	}
	return StatusPending
}
