package marker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicThenTouchEstablishesOrdering(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "abc.bin")
	readyMarker := filepath.Join(dir, "abc.ready")

	if Exists(readyMarker) {
		t.Fatalf("marker should not exist before it is written")
	}

	if err := WriteAtomic(payload, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if err := Touch(readyMarker); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	if !Exists(readyMarker) {
		t.Fatalf("marker should exist after Touch")
	}
	data, err := os.ReadFile(payload)
	if err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("payload corrupted: got %q", data)
	}
}

func TestWriteAtomicNeverLeavesTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	if err := WriteAtomic(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "x.json" {
		t.Fatalf("expected exactly one final file, got %v", entries)
	}
}

func TestListByExtSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.ready", "a.ready", "c.done", "a.failed"} {
		if err := Touch(filepath.Join(dir, name)); err != nil {
			t.Fatalf("Touch %s: %v", name, err)
		}
	}
	got, err := ListByExt(dir, ".ready")
	if err != nil {
		t.Fatalf("ListByExt: %v", err)
	}
	want := []string{"a.ready", "b.ready"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCountBackpressure(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 11; i++ {
		if err := Touch(filepath.Join(dir, string(rune('a'+i))+".ready")); err != nil {
			t.Fatalf("Touch: %v", err)
		}
	}
	n, err := Count(dir, ".ready")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 11 {
		t.Fatalf("got %d, want 11", n)
	}
}

func TestStripSuffix(t *testing.T) {
	if got := StripSuffix("deadbeef.ready", ".ready"); got != "deadbeef" {
		t.Fatalf("got %q", got)
	}
}
