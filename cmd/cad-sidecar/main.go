// Command cad-sidecar is the CAD-to-PDF converter process: no network, no
// database credentials, a poll loop over its exchange directory. The
// Orchestrator may run one instance per job (ephemeral mode) or a single
// persistent instance shared across jobs, per CAD_MODE.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jorineg/thumbextract/internal/cadsidecar"
	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadCADSidecarConfig()
	if err != nil {
		log.Fatalf("failed to load cad sidecar configuration: %v", err)
	}

	logger := logging.NewLogger("cad-sidecar")

	if err := marker.EnsureDirs(cfg.ExchangeDir); err != nil {
		log.Fatalf("failed to prepare exchange directory: %v", err)
	}

	sidecar := cadsidecar.New(cfg.ExchangeDir, cfg.ODAConverterPath, logger)

	logger.Info("cad sidecar ready", "exchange_dir", cfg.ExchangeDir, "converter", cfg.ODAConverterPath)

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

	logger.Info("cad sidecar stopped")
}
