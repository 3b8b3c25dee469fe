package sound

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDurationMissingFile(t *testing.T) {
	if _, err := Duration(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("Duration() error = nil; want open error")
	}
}

func TestDurationInvalidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mp3")
	if err := os.WriteFile(path, []byte("not an mp3"), 0644); err != nil {
		t.Fatalf("couldn't write file: %v", err)
	}
	if _, err := Duration(path); err == nil {
		t.Fatal("Duration() error = nil; want decode error")
	}
}

func TestCheckUnknownReported(t *testing.T) {
	// A reported duration of zero means unknown and is never an error
	if err := Check("missing.mp3", 0, 0); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
}
