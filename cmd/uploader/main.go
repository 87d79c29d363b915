// Command uploader scans the status stage volume for `.done`/`.failed`
// markers, sanitizes and uploads thumbnails, and writes results back to the
// job store through the minimal update-only database capability.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jorineg/thumbextract/internal/blobstore"
	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/dbrole"
	"github.com/jorineg/thumbextract/internal/jobmodel"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
	"github.com/jorineg/thumbextract/internal/sanitize"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadUploaderConfig()
	if err != nil {
		log.Fatalf("failed to load uploader configuration: %v", err)
	}

	logger := logging.NewLogger("uploader")

	db, err := dbrole.NewUploaderClient(cfg.UploaderDatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	blobs := blobstore.NewClient(cfg.BlobEndpoint)

	outputDir := filepath.Join(cfg.StageVolumeRoot, "output")
	statusDir := filepath.Join(cfg.StageVolumeRoot, "status")
	if err := marker.EnsureDirs(outputDir, statusDir); err != nil {
		log.Fatalf("failed to prepare stage volumes: %v", err)
	}

	logger.Info("uploader starting", "poll_interval", cfg.PollInterval)

	running := true
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, will stop after current tick", "signal", sig.String())
		running = false
	}()

	ticker := time.NewTicker(time.Duration(cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	for running {
		tick(context.Background(), cfg, db, blobs, outputDir, statusDir, logger)
		<-ticker.C
	}

	logger.Info("uploader stopped")
}

func tick(ctx context.Context, cfg *config.UploaderConfig, db *dbrole.UploaderClient, blobs *blobstore.Client, outputDir, statusDir string, logger *logging.Logger) {
	done, err := marker.ListByExt(statusDir, ".done")
	if err != nil {
		logger.Error("failed to list done markers", "error", err)
	}
	for _, name := range done {
		hash := marker.StripSuffix(name, ".done")
		if err := processDone(ctx, cfg, db, blobs, outputDir, statusDir, hash, logger); err != nil {
			logger.Error("failed to process done job", "content_hash", hash, "error", err)
		}
	}

	failed, err := marker.ListByExt(statusDir, ".failed")
	if err != nil {
		logger.Error("failed to list failed markers", "error", err)
	}
	for _, name := range failed {
		hash := marker.StripSuffix(name, ".failed")
		if err := processFailed(ctx, cfg, db, statusDir, hash, logger); err != nil {
			logger.Error("failed to process failed job", "content_hash", hash, "error", err)
		}
	}
}

func processDone(ctx context.Context, cfg *config.UploaderConfig, db *dbrole.UploaderClient, blobs *blobstore.Client, outputDir, statusDir, hash string, logger *logging.Logger) error {
	doneMarker := filepath.Join(statusDir, hash+".done")
	defer os.Remove(doneMarker)

	logging.ForwardFile(logger, hash, filepath.Join(outputDir, hash+".log"))

	resultPath := filepath.Join(outputDir, hash+".result.json")
	resultBytes, err := os.ReadFile(resultPath)
	if err != nil {
		return err
	}
	var result jobmodel.ProcessorResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return err
	}

	jobLogger := logger.WithJob(hash)

	if !result.Success {
		errMsg := "processing failed"
		if result.Error != nil {
			errMsg = *result.Error
		}
		jobLogger.Error("processor reported failure", "error", errMsg)
		return failJob(ctx, db, cfg, hash, errMsg)
	}

	var thumbnailPath, extractedText string

	if result.ThumbnailFile != nil && *result.ThumbnailFile != "" {
		thumbPath := filepath.Join(outputDir, hash+".thumbnail.png")
		raw, err := os.ReadFile(thumbPath)
		if err != nil {
			jobLogger.Error("missing thumbnail referenced by result", "error", err)
		} else {
			sanitized, w, h, err := sanitize.Thumbnail(raw, cfg.MaxThumbnailBytes)
			if err != nil {
				jobLogger.Error("thumbnail sanitization failed, continuing without thumbnail", "error", err)
			} else {
				if w != cfg.ThumbnailWidth && w != cfg.ThumbnailLargeWidth {
					jobLogger.Warn("thumbnail has non-standard dimensions", "width", w, "height", h)
				}
				if err := blobs.PutThumbnail(ctx, cfg.ThumbnailBucket, hash, sanitized); err != nil {
					jobLogger.Error("thumbnail upload failed", "error", err)
				} else {
					thumbnailPath = hash + ".png"
				}
			}
		}
	}

	if result.ExtractedText != nil {
		extractedText = sanitize.Text(*result.ExtractedText, cfg.MaxTextLength)
	}

	update := dbrole.ResultUpdate{
		ContentHash:          hash,
		ThumbnailPath:        thumbnailPath,
		ExtractedText:        extractedText,
		ThumbnailGeneratedAt: time.Now(),
	}
	if err := db.MarkDone(ctx, update); err != nil {
		return err
	}

	cleanupOutput(outputDir, hash)
	jobLogger.Info("job completed", "has_thumbnail", thumbnailPath != "", "has_text", extractedText != "")
	return nil
}

func processFailed(ctx context.Context, cfg *config.UploaderConfig, db *dbrole.UploaderClient, statusDir, hash string, logger *logging.Logger) error {
	failedMarker := filepath.Join(statusDir, hash+".failed")
	defer os.Remove(failedMarker)

	raw, err := os.ReadFile(failedMarker)
	errMsg := "unknown error"
	if err == nil && len(raw) > 0 {
		errMsg = string(raw)
	}
	return failJob(ctx, db, cfg, hash, errMsg)
}

func failJob(ctx context.Context, db *dbrole.UploaderClient, cfg *config.UploaderConfig, hash, errMsg string) error {
	tryCount, nextStatus, err := db.MarkFailed(ctx, hash, cfg.MaxRetries)
	if err != nil {
		return err
	}
	logging.NewLogger("uploader").WithJob(hash).Info("job marked failed", "try_count", tryCount, "next_status", nextStatus, "error", errMsg)
	return nil
}

func cleanupOutput(outputDir, hash string) {
	for _, suffix := range []string{".result.json", ".thumbnail.png", ".log"} {
		os.Remove(filepath.Join(outputDir, hash+suffix))
	}
}
