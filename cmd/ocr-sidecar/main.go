// Command ocr-sidecar is the long-lived OCR engine process: no network, no
// database credentials, just a poll loop over its exchange directory.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
	"github.com/jorineg/thumbextract/internal/ocrsidecar"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadOCRSidecarConfig()
	if err != nil {
		log.Fatalf("failed to load ocr sidecar configuration: %v", err)
	}

	logger := logging.NewLogger("ocr-sidecar")

	if err := marker.EnsureDirs(cfg.ExchangeDir); err != nil {
		log.Fatalf("failed to prepare exchange directory: %v", err)
	}

	sidecar, err := ocrsidecar.New(cfg.ExchangeDir, cfg.TesseractLang, cfg.WordlistPath, logger)
	if err != nil {
		log.Fatalf("failed to start ocr sidecar: %v", err)
	}

	logger.Info("ocr sidecar ready", "exchange_dir", cfg.ExchangeDir, "lang", cfg.TesseractLang)

	running := true
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		running = false
	}()

	pollEvery := time.Duration(cfg.PollMillis) * time.Millisecond
	for running {
		if processed := sidecar.PollOnce(); processed == 0 {
			time.Sleep(pollEvery)
		}
	}

	logger.Info("ocr sidecar stopped")
}
