package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// processOffice shells out to the headless office engine to convert to PDF,
// then treats the result as a generated PDF (no OCR).
func (p *Processor) processOffice(job Job, inputPath string) Outcome {
	outDir := filepath.Join(p.cfg.WorkDir, "office-"+uuid.NewString())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("create office scratch dir: %w", err)}
	}
	defer os.RemoveAll(outDir)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cfg.OfficeToPDFBin, inputPath, outDir)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("office conversion failed: %w: %s", err, firstLine(stderr.String()))}
	}

	pdfPath := filepath.Join(outDir, trimExt(filepath.Base(inputPath))+".pdf")
	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("read converted pdf: %w", err)}
	}
	return p.processGeneratedPDF(job, pdfBytes)
}

// processSVG shells out to the SVG rasterizer, then cover-crops the result.
func (p *Processor) processSVG(job Job, inputPath string) Outcome {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cfg.SVGRasterizeBin, inputPath, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("svg rasterize failed: %w: %s", err, firstLine(stderr.String()))}
	}

	img, err := decodeRaster(stdout.Bytes())
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("decode rasterized svg: %w", err)}
	}
	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)
	return Outcome{Success: true, ThumbnailImage: thumb}
}

// processVideo extracts a frame at t=1s (falling back to t=0) via ffmpeg,
// then cover-crops it.
func (p *Processor) processVideo(job Job, inputPath string) Outcome {
	frame, err := p.extractVideoFrameTimeout(inputPath, "00:00:01")
	if err != nil {
		frame, err = p.extractVideoFrameTimeout(inputPath, "00:00:00")
		if err != nil {
			return Outcome{Success: false, Err: fmt.Errorf("extract video frame: %w", err)}
		}
	}
	img, err := decodeRaster(frame)
	if err != nil {
		return Outcome{Success: false, Err: fmt.Errorf("decode extracted frame: %w", err)}
	}
	w, h := p.thumbnailDimensions(job.OriginalExtension)
	thumb := CoverCrop(img, w, h, p.cfg.ThumbnailCropTop)
	return Outcome{Success: true, ThumbnailImage: thumb}
}

func (p *Processor) extractVideoFrameTimeout(inputPath, timestamp string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return extractVideoFrame(ctx, p.cfg.FFmpegBin, inputPath, timestamp)
}

func extractVideoFrame(ctx context.Context, ffmpegBin, inputPath, timestamp string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-ss", timestamp, "-i", inputPath,
		"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, firstLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %s", timestamp)
	}
	return stdout.Bytes(), nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
