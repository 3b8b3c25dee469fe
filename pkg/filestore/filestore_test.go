package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewUnknownType(t *testing.T) {
	if _, err := New("ftp", "conn", "", false, nil); err == nil {
		t.Fatal("New() error = nil; want unknown type error")
	}
}

func TestNewInvalidConnStrings(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		conn string
	}{
		{"telegram missing chat", "telegram", "token-only"},
		{"telegram bad chat id", "telegram", "token@notanumber"},
		{"s3 missing bucket", "s3", "key:secret"},
		{"s3 missing secret", "s3", "key@bucket.region"},
		{"s3 missing region", "s3", "key:secret@bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.typ, tt.conn, "", false, nil); err == nil {
				t.Errorf("New(%q, %q) error = nil; want parse error", tt.typ, tt.conn)
			}
		})
	}
}

func TestNewTelegramWithoutStore(t *testing.T) {
	// Telegram keeps its message references in the journal
	if _, err := New("telegram", "token@12345", "", false, nil); err == nil {
		t.Fatal("New() error = nil; want missing database error")
	}
}

func TestName(t *testing.T) {
	if got := Name("task-1", "/out/song_01/track_1.mp3"); got != "task-1_track_1.mp3" {
		t.Errorf("Name() = %q; want task-1_track_1.mp3", got)
	}
}

func TestLocalArchiveRetrieve(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New("local", root, "", false, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	src := filepath.Join(t.TempDir(), "track_1.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatalf("couldn't write source: %v", err)
	}
	if err := s.Archive(ctx, "task-1", src); err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "restored.mp3")
	if err := s.Retrieve(ctx, dst, "task-1_track_1.mp3"); err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("couldn't read restored file: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("restored content = %q; want audio", data)
	}
}
