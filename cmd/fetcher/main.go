// Command fetcher claims pending jobs from the job store and downloads
// their input blobs onto the input stage volume. It holds network access
// and the minimal claim-only database capability; it has no permission to
// mark a job failed.
package main

import (
	"context"
	"encoding/json"
	"io"
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
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadFetcherConfig()
	if err != nil {
		log.Fatalf("failed to load fetcher configuration: %v", err)
	}

	logger := logging.NewLogger("fetcher")

	db, err := dbrole.NewFetcherClient(cfg.FetcherDatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	blobs := blobstore.NewClient(cfg.BlobEndpoint)

	inputDir := filepath.Join(cfg.StageVolumeRoot, "input")
	if err := marker.EnsureDirs(inputDir); err != nil {
		log.Fatalf("failed to prepare input stage volume: %v", err)
	}

	logger.Info("fetcher starting", "poll_interval", cfg.PollInterval, "backpressure", cfg.ReadyBackpressure)

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
		tick(context.Background(), cfg, db, blobs, inputDir, logger)
		<-ticker.C
	}

	logger.Info("fetcher stopped")
}

func tick(ctx context.Context, cfg *config.FetcherConfig, db *dbrole.FetcherClient, blobs *blobstore.Client, inputDir string, logger *logging.Logger) {
	pending, err := marker.Count(inputDir, ".ready")
	if err != nil {
		logger.Error("failed to count pending ready markers", "error", err)
		return
	}
	if pending >= cfg.ReadyBackpressure {
		logger.Debug("backpressure active, skipping claim", "pending", pending, "cap", cfg.ReadyBackpressure)
		return
	}

	claimCount := cfg.ReadyBackpressure - pending
	claimed, err := db.ClaimPending(ctx, claimCount)
	if err != nil {
		logger.Error("claim failed, will retry next tick", "error", err)
		return
	}

	for _, row := range claimed {
		if err := download(ctx, row, blobs, cfg, inputDir, logger); err != nil {
			logger.Error("download failed; job remains indexing for timeout sweep", "content_hash", row.ContentHash, "error", err)
		}
	}
}

func download(ctx context.Context, row dbrole.ClaimedRow, blobs *blobstore.Client, cfg *config.FetcherConfig, inputDir string, logger *logging.Logger) error {
	binPath := filepath.Join(inputDir, row.ContentHash+".bin")
	jsonPath := filepath.Join(inputDir, row.ContentHash+".json")
	readyPath := filepath.Join(inputDir, row.ContentHash+".ready")

	body, err := blobs.GetObject(ctx, cfg.SourceBucket, row.StoragePath)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(inputDir, ".download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, binPath); err != nil {
		os.Remove(tmpName)
		return err
	}

	meta := jobmodel.InputMetadata{
		ContentHash:       row.ContentHash,
		StoragePath:       row.StoragePath,
		OriginalFilename:  filepath.Base(row.FullPath),
		OriginalExtension: filepath.Ext(row.FullPath),
		TryCount:          row.TryCount,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := marker.WriteAtomic(jsonPath, metaJSON, 0o644); err != nil {
		return err
	}

	// The .ready marker is written last: its appearance is the atomicity
	// boundary the Orchestrator waits on.
	if err := marker.Touch(readyPath); err != nil {
		return err
	}

	logger.Info("downloaded job input", "content_hash", row.ContentHash, "size_bytes", row.SizeBytes)
	return nil
}
