// Command orchestrator is the per-job ephemeral-sandbox scheduler. It holds
// only the container-runtime socket: no network, no database credentials.
// It notices `.ready` markers, stages a job-scoped work volume, spawns the
// Processor container (and, for CAD formats, an ephemeral CAD sidecar),
// waits with a timeout, and marshals results back onto the output and
// status stage volumes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jorineg/thumbextract/internal/config"
	"github.com/jorineg/thumbextract/internal/errors"
	"github.com/jorineg/thumbextract/internal/jobmodel"
	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
	"github.com/jorineg/thumbextract/internal/sandbox"
	"github.com/joho/godotenv"
)

var cadExtensions = map[string]struct{}{".dwg": {}, ".dxf": {}}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadOrchestratorConfig()
	if err != nil {
		log.Fatalf("failed to load orchestrator configuration: %v", err)
	}

	logger := logging.NewLogger("orchestrator")

	rt, err := sandbox.NewRuntime(cfg.DockerHost)
	if err != nil {
		log.Fatalf("failed to connect to container runtime: %v", err)
	}
	defer rt.Close()

	inputDir := filepath.Join(cfg.StageVolumeRoot, "input")
	outputDir := filepath.Join(cfg.StageVolumeRoot, "output")
	statusDir := filepath.Join(cfg.StageVolumeRoot, "status")
	cadExchangeDir := filepath.Join(cfg.StageVolumeRoot, "cad-exchange")
	ocrExchangeDir := filepath.Join(cfg.StageVolumeRoot, "ocr-exchange")
	if err := marker.EnsureDirs(inputDir, outputDir, statusDir, cadExchangeDir, ocrExchangeDir); err != nil {
		log.Fatalf("failed to prepare stage volumes: %v", err)
	}

	o := &orchestrator{
		cfg: cfg, rt: rt, logger: logger,
		inputDir: inputDir, outputDir: outputDir, statusDir: statusDir,
		cadExchangeDir: cadExchangeDir, ocrExchangeDir: ocrExchangeDir,
	}

	logger.Info("orchestrator starting", "poll_interval", cfg.PollInterval)

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
		o.tick(context.Background())
		<-ticker.C
	}

	logger.Info("orchestrator stopped")
}

type orchestrator struct {
	cfg                                                   *config.OrchestratorConfig
	rt                                                     *sandbox.Runtime
	logger                                                 *logging.Logger
	inputDir, outputDir, statusDir, cadExchangeDir, ocrExchangeDir string
}

func (o *orchestrator) tick(ctx context.Context) {
	ready, err := marker.ListByExt(o.inputDir, ".ready")
	if err != nil {
		o.logger.Error("failed to list ready markers", "error", err)
		return
	}
	for _, name := range ready {
		hash := marker.StripSuffix(name, ".ready")
		o.processJob(ctx, hash)
	}
}

// processJob implements the full per-job lifecycle. Every exit path
// (success, failure, panic-free error) reaches the cleanup at the bottom:
// input files, the job volume, and any CAD sidecar container are always
// torn down, matching the original's try/finally discipline.
func (o *orchestrator) processJob(ctx context.Context, hash string) {
	jobLogger := o.logger.WithJob(hash)
	readyMarker := filepath.Join(o.inputDir, hash+".ready")
	binPath := filepath.Join(o.inputDir, hash+".bin")
	jsonPath := filepath.Join(o.inputDir, hash+".json")

	metaBytes, err := os.ReadFile(jsonPath)
	if err != nil {
		jobLogger.Error("missing job metadata, dropping job input", "error", err)
		o.cleanupInput(hash)
		return
	}
	var meta jobmodel.InputMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		jobLogger.Error("corrupt job metadata", "error", err)
		o.writeFailed(hash, meta, errors.NewConfigInvalidError(hash, err))
		o.cleanupInput(hash)
		return
	}

	volumeName := "thumbextract-job-" + hash
	var cadContainerID string

	cleanup := func() {
		os.Remove(readyMarker)
		os.Remove(binPath)
		os.Remove(jsonPath)
		_ = o.rt.RemoveVolume(ctx, volumeName)
		if cadContainerID != "" {
			_ = o.rt.Remove(ctx, cadContainerID)
		}
		o.sweepCADExchange(hash)
	}
	defer cleanup()

	if err := o.rt.EnsureVolume(ctx, volumeName); err != nil {
		jobLogger.Error("failed to create job volume", "error", err)
		o.writeFailed(hash, meta, errors.NewSandboxStartFailedError(hash, err))
		return
	}

	if err := o.stageInput(ctx, volumeName, binPath, jsonPath, meta); err != nil {
		jobLogger.Error("failed to stage job input", "error", err)
		o.writeFailed(hash, meta, errors.NewSandboxStartFailedError(hash, err))
		return
	}

	ext := strings.ToLower(meta.OriginalExtension)
	if _, needsCAD := cadExtensions[ext]; needsCAD && o.cfg.EphemeralCAD {
		id, err := o.spawnCADSidecar(ctx, hash)
		if err != nil {
			jobLogger.Error("failed to spawn CAD sidecar", "error", err)
			o.writeFailed(hash, meta, errors.NewCADFailedError(hash, err))
			return
		}
		cadContainerID = id
	}

	procID, err := o.spawnProcessor(ctx, volumeName)
	if err != nil {
		jobLogger.Error("failed to spawn processor", "error", err)
		o.writeFailed(hash, meta, errors.NewSandboxStartFailedError(hash, err))
		return
	}
	defer o.rt.Remove(ctx, procID)

	exitCode, err := o.rt.Wait(ctx, procID, time.Duration(o.cfg.ProcessorTimeout)*time.Second)
	logs, logErr := o.rt.Logs(ctx, procID)
	if logErr == nil {
		o.captureLogs(hash, logs)
	}
	if err != nil {
		jobLogger.Error("processor sandbox did not complete", "error", err)
		o.writeFailed(hash, meta, errors.NewSandboxTimeoutError(hash, time.Duration(o.cfg.ProcessorTimeout)*time.Second))
		return
	}
	if exitCode != 0 {
		jobLogger.Warn("processor exited non-zero", "exit_code", exitCode)
	}

	if err := o.collectOutput(ctx, procID, hash, meta); err != nil {
		jobLogger.Error("failed to collect processor output", "error", err)
		o.writeFailed(hash, meta, errors.NewSandboxStartFailedError(hash, err))
		return
	}

	jobLogger.Info("job handed off to uploader")
}

func (o *orchestrator) stageInput(ctx context.Context, volumeName, binPath, jsonPath string, meta jobmodel.InputMetadata) error {
	staging, err := o.rt.Spawn(ctx, sandbox.SandboxSpec{
		Image:      "alpine:3.19",
		Cmd:        []string{"sleep", "30"},
		NetworkOff: true,
		Mounts: []sandbox.BindMount{
			{Source: volumeName, Target: "/work", IsVolume: true},
		},
	})
	if err != nil {
		return fmt.Errorf("spawn staging container: %w", err)
	}
	defer o.rt.Remove(ctx, staging.ID)

	inputName := "input" + meta.OriginalExtension
	if err := copyFileInto(ctx, o.rt, staging.ID, "/work/"+inputName, binPath); err != nil {
		return fmt.Errorf("copy input.bin: %w", err)
	}

	jobJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := copyBytesInto(ctx, o.rt, staging.ID, "/work/job.json", jobJSON); err != nil {
		return fmt.Errorf("copy job.json: %w", err)
	}
	return nil
}

func (o *orchestrator) spawnCADSidecar(ctx context.Context, hash string) (string, error) {
	spawned, err := o.rt.Spawn(ctx, sandbox.SandboxSpec{
		Image:        o.cfg.CADImage,
		Runtime:      o.cfg.ProcessorRuntime,
		NetworkOff:   true,
		ReadOnlyRoot: true,
		MemoryMB:     o.cfg.CADMemoryMB,
		Pids:         o.cfg.CADPids,
		TmpfsMB:      o.cfg.CADTmpfsMB,
		Mounts: []sandbox.BindMount{
			{Source: o.cadExchangeDir, Target: "/cad-exchange"},
		},
	})
	if err != nil {
		return "", err
	}
	return spawned.ID, nil
}

func (o *orchestrator) spawnProcessor(ctx context.Context, volumeName string) (string, error) {
	spawned, err := o.rt.Spawn(ctx, sandbox.SandboxSpec{
		Image:        o.cfg.ProcessorImage,
		Runtime:      o.cfg.ProcessorRuntime,
		NetworkOff:   true,
		ReadOnlyRoot: true,
		MemoryMB:     o.cfg.ProcessorMemoryMB,
		CPUs:         o.cfg.ProcessorCPUs,
		Pids:         o.cfg.ProcessorPids,
		TmpfsMB:      o.cfg.ProcessorTmpfsMB,
		Mounts: []sandbox.BindMount{
			{Source: volumeName, Target: "/work", IsVolume: true},
			{Source: o.cadExchangeDir, Target: "/cad-exchange"},
			{Source: o.ocrExchangeDir, Target: "/ocr-exchange"},
		},
	})
	if err != nil {
		return "", err
	}
	return spawned.ID, nil
}

func (o *orchestrator) collectOutput(ctx context.Context, procID, hash string, meta jobmodel.InputMetadata) error {
	resultJSON, err := readFileFromContainer(ctx, o.rt, procID, "/work/result.json")
	if err != nil {
		return fmt.Errorf("read result.json: %w", err)
	}
	var result jobmodel.ProcessorResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return fmt.Errorf("parse result.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.outputDir, hash+".result.json"), resultJSON, 0o644); err != nil {
		return err
	}

	if thumb, err := readFileFromContainer(ctx, o.rt, procID, "/work/thumbnail.png"); err == nil {
		if err := os.WriteFile(filepath.Join(o.outputDir, hash+".thumbnail.png"), thumb, 0o644); err != nil {
			return err
		}
	}

	if !result.Success {
		errMsg := "processing failed"
		if result.Error != nil {
			errMsg = *result.Error
		}
		o.writeFailed(hash, meta, errors.NewProcessingFailedError(hash, errMsg))
		return nil
	}

	doneMeta := jobmodel.DoneMetadata{
		ContentHash: hash,
		StoragePath: meta.StoragePath,
		TryCount:    meta.TryCount,
	}
	if result.ThumbnailFile != nil {
		doneMeta.ThumbnailFile = *result.ThumbnailFile
	}
	if result.ExtractedText != nil {
		doneMeta.ExtractedText = *result.ExtractedText
	}
	doneJSON, err := json.Marshal(doneMeta)
	if err != nil {
		return err
	}
	return marker.WriteMarker(filepath.Join(o.statusDir, hash+".done"), doneJSON)
}

func (o *orchestrator) writeFailed(hash string, meta jobmodel.InputMetadata, procErr *errors.ProcessingError) {
	failedMeta := jobmodel.FailedMetadata{
		ContentHash: hash,
		StoragePath: meta.StoragePath,
		TryCount:    meta.TryCount,
		Error:       procErr.Error(),
	}
	payload, err := json.Marshal(failedMeta)
	if err != nil {
		payload = []byte(procErr.Error())
	}
	o.logger.Error("job failed", "content_hash", hash, "error_code", string(procErr.Code), "error", procErr.Error())
	if err := marker.WriteMarker(filepath.Join(o.statusDir, hash+".failed"), payload); err != nil {
		o.logger.Error("failed to write .failed marker", "content_hash", hash, "error", err)
	}
}

func (o *orchestrator) captureLogs(hash string, r io.ReadCloser) {
	defer r.Close()
	f, err := os.Create(filepath.Join(o.outputDir, hash+".log"))
	if err != nil {
		return
	}
	defer f.Close()
	io.Copy(f, r)
}

func (o *orchestrator) cleanupInput(hash string) {
	os.Remove(filepath.Join(o.inputDir, hash+".ready"))
	os.Remove(filepath.Join(o.inputDir, hash+".bin"))
	os.Remove(filepath.Join(o.inputDir, hash+".json"))
}

// sweepCADExchange removes any leftover exchange files whose id starts with
// this job's hash prefix, in case a CAD conversion never reached a terminal
// marker (crash, kill, or a timeout the caller enforced independently).
func (o *orchestrator) sweepCADExchange(hash string) {
	entries, err := os.ReadDir(o.cadExchangeDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), hash) {
			os.Remove(filepath.Join(o.cadExchangeDir, e.Name()))
		}
	}
}

func copyFileInto(ctx context.Context, rt *sandbox.Runtime, containerID, destPath, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return copyBytesInto(ctx, rt, containerID, destPath, data)
}

func copyBytesInto(ctx context.Context, rt *sandbox.Runtime, containerID, destPath string, data []byte) error {
	tarBuf, err := tarSingleFile(filepath.Base(destPath), data)
	if err != nil {
		return err
	}
	return rt.CopyInto(ctx, containerID, filepath.Dir(destPath), bytes.NewReader(tarBuf))
}

func readFileFromContainer(ctx context.Context, rt *sandbox.Runtime, containerID, path string) ([]byte, error) {
	rc, err := rt.CopyOutOf(ctx, containerID, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return untarSingleFile(rc)
}
