package cadsidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jorineg/thumbextract/internal/logging"
	"github.com/jorineg/thumbextract/internal/marker"
)

func TestPollOnceWritesFailedWhenConverterMissing(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, filepath.Join(dir, "no-such-converter"), logging.NewLogger("cad-sidecar-test"))

	inputPath := filepath.Join(dir, "job1.dwg")
	if err := os.WriteFile(inputPath, []byte("fake dwg bytes"), 0o644); err != nil {
		t.Fatalf("write fixture input: %v", err)
	}
	if err := marker.WriteMarker(filepath.Join(dir, "job1.convert"), []byte("job1.dwg")); err != nil {
		t.Fatalf("write convert marker: %v", err)
	}

	processed := s.PollOnce()
	if processed != 1 {
		t.Fatalf("got %d processed, want 1", processed)
	}
	if marker.Exists(filepath.Join(dir, "job1.convert")) {
		t.Fatalf("convert marker should have been consumed")
	}
	if !marker.Exists(filepath.Join(dir, "job1.failed")) {
		t.Fatalf("expected a .failed marker when the converter binary is missing")
	}
}

func TestPollOnceNoRequestsReturnsZero(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "/bin/true", logging.NewLogger("cad-sidecar-test"))
	if processed := s.PollOnce(); processed != 0 {
		t.Fatalf("got %d, want 0", processed)
	}
}
