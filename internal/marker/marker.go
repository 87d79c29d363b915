// Package marker implements the file-based inter-process protocol used
// between every adjacent pair of pipeline stages: a payload is written to
// its final path, then a small marker file is created whose existence (not
// content) signals that the payload is safe to read. The marker write is
// always the last step of the producer and the first check of the consumer,
// which gives a happens-before relationship without flocks or IPC.
package marker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteAtomic writes data to path via a temp file + rename, so a reader
// never observes a partially written payload.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("marker: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("marker: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("marker: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("marker: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("marker: rename into place: %w", err)
	}
	return nil
}

// Touch creates (or truncates) an empty marker file. Existence is the
// signal; content is ignored by convention unless the caller writes bytes.
func Touch(path string) error {
	return WriteAtomic(path, nil, 0o644)
}

// WriteMarker writes the marker file with content (e.g. metadata JSON or an
// error string), observing the same atomic-write discipline as the payload
// it signals.
func WriteMarker(path string, content []byte) error {
	return WriteAtomic(path, content, 0o644)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListByExt returns, sorted, every file directly under dir whose name ends
// in suffix (e.g. ".ready"), matching the directory-listing order the OCR
// Sidecar and Orchestrator use when there is no other fairness requirement.
func ListByExt(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Count counts files matching suffix under dir; used for Fetcher
// backpressure (count(*.ready) >= cap skips the claim this tick).
func Count(dir, suffix string) (int, error) {
	names, err := ListByExt(dir, suffix)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// StripSuffix returns the id portion of a marker filename, e.g.
// StripSuffix("abcd.ready", ".ready") == "abcd".
func StripSuffix(name, suffix string) string {
	return strings.TrimSuffix(name, suffix)
}

// EnsureDirs creates every directory in dirs if missing.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("marker: ensure dir %s: %w", d, err)
		}
	}
	return nil
}
