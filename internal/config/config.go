// Package config loads environment-driven configuration for every
// component of the thumbnail/text extraction pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Common holds the configuration shared by all five pipeline components.
type Common struct {
	PollInterval int // seconds
	MaxRetries   int

	ThumbnailWidth       int
	ThumbnailHeight      int
	ThumbnailLargeWidth  int
	ThumbnailLargeHeight int
	ThumbnailSmallExts   map[string]struct{}
	ThumbnailCropTop     bool // true: top-anchor vertical crop, false: center

	DWGIntermediateDPI int
	DWGWhiteThreshold  int

	MaxTextLength           int
	TextFallbackMaxSize     int64
	TextFallbackMinPrintable float64

	StageVolumeRoot string // base dir holding input/, output/, status/, cad-exchange/, ocr-exchange/
}

// LoadCommon reads the configuration block shared across components.
func LoadCommon() Common {
	return Common{
		PollInterval:             getEnvAsIntOrDefault("POLL_INTERVAL", 5),
		MaxRetries:               getEnvAsIntOrDefault("MAX_RETRIES", 3),
		ThumbnailWidth:           getEnvAsIntOrDefault("THUMBNAIL_WIDTH", 400),
		ThumbnailHeight:          getEnvAsIntOrDefault("THUMBNAIL_HEIGHT", 300),
		ThumbnailLargeWidth:      getEnvAsIntOrDefault("THUMBNAIL_LARGE_WIDTH", 800),
		ThumbnailLargeHeight:     getEnvAsIntOrDefault("THUMBNAIL_LARGE_HEIGHT", 600),
		ThumbnailSmallExts:       parseExtSet(getEnvOrDefault("THUMBNAIL_SMALL_EXTENSIONS", "pdf,png,jpg,jpeg,heic,heif,gif,svg")),
		ThumbnailCropTop:         strings.EqualFold(getEnvOrDefault("THUMBNAIL_CROP_POSITION", "center"), "top"),
		DWGIntermediateDPI:       getEnvAsIntOrDefault("DWG_INTERMEDIATE_DPI", 600),
		DWGWhiteThreshold:        getEnvAsIntOrDefault("DWG_WHITE_THRESHOLD", 250),
		MaxTextLength:            getEnvAsIntOrDefault("MAX_TEXT_LENGTH", 51200),
		TextFallbackMaxSize:      getEnvAsInt64OrDefault("TEXT_FALLBACK_MAX_SIZE", 204800),
		TextFallbackMinPrintable: getEnvAsFloatOrDefault("TEXT_FALLBACK_MIN_PRINTABLE", 0.99),
		StageVolumeRoot:          getEnvOrDefault("STAGE_VOLUME_ROOT", "/var/lib/thumbextract"),
	}
}

// FetcherConfig is the Fetcher process's configuration.
type FetcherConfig struct {
	Common
	FetcherDatabaseURL string
	BlobEndpoint       string
	SourceBucket       string
	ReadyBackpressure  int
}

// LoadFetcherConfig loads Fetcher-specific configuration.
func LoadFetcherConfig() (*FetcherConfig, error) {
	cfg := &FetcherConfig{
		Common:             LoadCommon(),
		FetcherDatabaseURL: getEnvOrDefault("FETCHER_DATABASE_URL", ""),
		BlobEndpoint:       getEnvOrDefault("BLOB_ENDPOINT", ""),
		SourceBucket:       getEnvOrDefault("SOURCE_BUCKET", "files"),
		ReadyBackpressure:  getEnvAsIntOrDefault("READY_BACKPRESSURE", 10),
	}
	if cfg.FetcherDatabaseURL == "" {
		return nil, fmt.Errorf("FETCHER_DATABASE_URL is required")
	}
	if cfg.BlobEndpoint == "" {
		return nil, fmt.Errorf("BLOB_ENDPOINT is required")
	}
	return cfg, nil
}

// UploaderConfig is the Uploader process's configuration.
type UploaderConfig struct {
	Common
	UploaderDatabaseURL string
	BlobEndpoint        string
	ThumbnailBucket     string
	MaxThumbnailBytes   int64
	LoggingEndpoint     string
}

// LoadUploaderConfig loads Uploader-specific configuration.
func LoadUploaderConfig() (*UploaderConfig, error) {
	cfg := &UploaderConfig{
		Common:              LoadCommon(),
		UploaderDatabaseURL: getEnvOrDefault("UPLOADER_DATABASE_URL", ""),
		BlobEndpoint:        getEnvOrDefault("BLOB_ENDPOINT", ""),
		ThumbnailBucket:     getEnvOrDefault("THUMBNAIL_BUCKET", "thumbnails"),
		MaxThumbnailBytes:   getEnvAsInt64OrDefault("MAX_THUMBNAIL_BYTES", 1048576),
		LoggingEndpoint:     getEnvOrDefault("LOGGING_ENDPOINT", ""),
	}
	if cfg.UploaderDatabaseURL == "" {
		return nil, fmt.Errorf("UPLOADER_DATABASE_URL is required")
	}
	if cfg.BlobEndpoint == "" {
		return nil, fmt.Errorf("BLOB_ENDPOINT is required")
	}
	return cfg, nil
}

// OrchestratorConfig is the Orchestrator process's configuration.
type OrchestratorConfig struct {
	Common
	DockerHost        string
	ProcessorImage    string
	ProcessorRuntime  string
	ProcessorTimeout  int // seconds
	ProcessorMemoryMB int64
	ProcessorCPUs     float64
	ProcessorPids     int64
	ProcessorTmpfsMB  int64
	CADImage          string
	CADTimeout        int // seconds
	CADMemoryMB       int64
	CADPids           int64
	CADTmpfsMB        int64
	EphemeralCAD      bool
}

// LoadOrchestratorConfig loads Orchestrator-specific configuration.
func LoadOrchestratorConfig() (*OrchestratorConfig, error) {
	cfg := &OrchestratorConfig{
		Common:            LoadCommon(),
		DockerHost:        getEnvOrDefault("DOCKER_HOST", ""),
		ProcessorImage:    getEnvOrDefault("PROCESSOR_IMAGE", "thumbextract/processor:latest"),
		ProcessorRuntime:  getEnvOrDefault("PROCESSOR_RUNTIME", "runc"),
		ProcessorTimeout:  getEnvAsIntOrDefault("PROCESSOR_TIMEOUT", 600),
		ProcessorMemoryMB: getEnvAsInt64OrDefault("PROCESSOR_MEMORY", 2048),
		ProcessorCPUs:     getEnvAsFloatOrDefault("PROCESSOR_CPUS", 2.0),
		ProcessorPids:     getEnvAsInt64OrDefault("PROCESSOR_PIDS", 200),
		ProcessorTmpfsMB:  getEnvAsInt64OrDefault("PROCESSOR_TMPFS_MB", 512),
		CADImage:          getEnvOrDefault("CAD_IMAGE", "thumbextract/cad-sidecar:latest"),
		CADTimeout:        getEnvAsIntOrDefault("CAD_TIMEOUT", 300),
		CADMemoryMB:       getEnvAsInt64OrDefault("CAD_MEMORY", 1024),
		CADPids:           getEnvAsInt64OrDefault("CAD_PIDS", 100),
		CADTmpfsMB:        getEnvAsInt64OrDefault("CAD_TMPFS_MB", 256),
		EphemeralCAD:      getEnvOrDefault("CAD_MODE", "ephemeral") == "ephemeral",
	}
	if cfg.ProcessorImage == "" {
		return nil, fmt.Errorf("PROCESSOR_IMAGE is required")
	}
	return cfg, nil
}

// SidecarConfig is the shared configuration for the two long-lived sidecars.
type SidecarConfig struct {
	Common
	ExchangeDir  string
	PollMillis   int
	TesseractLang string
	WordlistPath string
	ODAConverterPath string
}

// LoadOCRSidecarConfig loads OCR Sidecar configuration.
func LoadOCRSidecarConfig() (*SidecarConfig, error) {
	cfg := &SidecarConfig{
		Common:        LoadCommon(),
		ExchangeDir:   getEnvOrDefault("OCR_EXCHANGE_DIR", ""),
		PollMillis:    getEnvAsIntOrDefault("OCR_POLL_MILLIS", 500),
		TesseractLang: getEnvOrDefault("TESSERACT_LANG", "deu+eng"),
		WordlistPath:  getEnvOrDefault("OCR_WORDLIST_PATH", ""),
	}
	if cfg.ExchangeDir == "" {
		return nil, fmt.Errorf("OCR_EXCHANGE_DIR is required")
	}
	return cfg, nil
}

// LoadCADSidecarConfig loads CAD Sidecar configuration.
func LoadCADSidecarConfig() (*SidecarConfig, error) {
	cfg := &SidecarConfig{
		Common:           LoadCommon(),
		ExchangeDir:      getEnvOrDefault("CAD_EXCHANGE_DIR", ""),
		PollMillis:       getEnvAsIntOrDefault("CAD_POLL_MILLIS", 500),
		ODAConverterPath: getEnvOrDefault("ODA_CONVERTER_PATH", "/opt/oda/ODAFileConverter"),
	}
	if cfg.ExchangeDir == "" {
		return nil, fmt.Errorf("CAD_EXCHANGE_DIR is required")
	}
	return cfg, nil
}

// ProcessorConfig is read by the air-gapped processor entrypoint from its
// own environment (set by the Orchestrator when it spawns the container).
type ProcessorConfig struct {
	Common
	WorkDir        string
	CADExchangeDir string
	OCRExchangeDir string
	OfficeToPDFBin string
	SVGRasterizeBin string
	FFmpegBin      string
}

// LoadProcessorConfig loads the Format Processor's configuration.
func LoadProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		Common:          LoadCommon(),
		WorkDir:         getEnvOrDefault("WORK_DIR", "/work"),
		CADExchangeDir:  getEnvOrDefault("CAD_EXCHANGE_DIR", "/cad-exchange"),
		OCRExchangeDir:  getEnvOrDefault("OCR_EXCHANGE_DIR", "/ocr-exchange"),
		OfficeToPDFBin:  getEnvOrDefault("OFFICE_TO_PDF_BIN", "/opt/office/convert-to-pdf"),
		SVGRasterizeBin: getEnvOrDefault("SVG_RASTERIZE_BIN", "/opt/svg/rasterize"),
		FFmpegBin:       getEnvOrDefault("FFMPEG_BIN", "/usr/bin/ffmpeg"),
	}
}

func parseExtSet(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		set[part] = struct{}{}
	}
	return set
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
