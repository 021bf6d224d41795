package metadata_test

import (
	"os"
	"path/filepath"
	"testing"

	"fstack/internal/metadata"
)

func TestCaptureTimeMissingFile(t *testing.T) {
	var r metadata.EXIFReader
	if _, ok := r.CaptureTime(filepath.Join(t.TempDir(), "missing.jpg")); ok {
		t.Fatal("missing file must report absence")
	}
}

func TestCaptureTimeNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jpg")
	if err := os.WriteFile(path, []byte("not a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var r metadata.EXIFReader
	if _, ok := r.CaptureTime(path); ok {
		t.Fatal("undecodable file must report absence, not a timestamp")
	}
}
