package song

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{
		fetch: func(url string, w io.Writer) error {
			_, err := w.Write([]byte("audio:" + url))
			return err
		},
	}
	task := &Task{
		ID:     "task-1",
		status: StatusSuccess,
		result: &Result{Tracks: []Track{
			{ID: "a", Title: "Song", AudioURL: "https://cdn/a.mp3", Genre: "pop", Duration: 181.5},
			{ID: "b", Title: "Song", AudioURL: "https://cdn/b.mp3"},
		}},
	}
	out, err := Materialize(context.Background(), svc, task, MaterializeConfig{
		Dir:    dir,
		Model:  ModelV45All,
		Prompt: "p",
		Style:  "pop",
	})
	if err != nil {
		t.Fatalf("Materialize() err = %v; want nil", err)
	}
	paths := out.Paths()
	if len(paths) != 2 {
		t.Fatalf("Materialize() wrote %d files; want 2", len(paths))
	}
	for i, want := range []string{"track_1.mp3", "track_2.mp3"} {
		if got := filepath.Base(paths[i]); got != want {
			t.Fatalf("Materialize() file %d = %q; want %q", i, got, want)
		}
	}

	b, err := os.ReadFile(out.MetadataPath)
	if err != nil {
		t.Fatalf("couldn't read metadata: %v", err)
	}
	var record struct {
		TaskID string `json:"task_id"`
		Model  string `json:"model"`
		Tracks []struct {
			File string `json:"file"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(b, &record); err != nil {
		t.Fatalf("couldn't unmarshal metadata: %v", err)
	}
	if record.TaskID != "task-1" {
		t.Fatalf("metadata task id = %q; want %q", record.TaskID, "task-1")
	}
	if len(record.Tracks) != 2 {
		t.Fatalf("metadata tracks = %d; want 2", len(record.Tracks))
	}
}

func TestMaterializePartialFailure(t *testing.T) {
	dir := t.TempDir()
	svc := &fakeService{
		fetch: func(url string, w io.Writer) error {
			if url == "https://cdn/b.mp3" {
				return errors.New("gone")
			}
			_, err := w.Write([]byte("audio"))
			return err
		},
	}
	task := &Task{
		ID:     "task-1",
		status: StatusSuccess,
		result: &Result{Tracks: []Track{
			{ID: "a", AudioURL: "https://cdn/a.mp3"},
			{ID: "b", AudioURL: "https://cdn/b.mp3"},
			{ID: "c", AudioURL: "https://cdn/c.mp3"},
		}},
	}
	out, err := Materialize(context.Background(), svc, task, MaterializeConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Materialize() err = %v; want nil", err)
	}
	if got := len(out.Paths()); got != 2 {
		t.Fatalf("Materialize() wrote %d files; want 2", got)
	}
	failed := out.Failed()
	if len(failed) != 1 {
		t.Fatalf("Materialize() failed = %d; want 1", len(failed))
	}
	if failed[0].Track.ID != "b" {
		t.Fatalf("Materialize() failed track = %q; want %q", failed[0].Track.ID, "b")
	}
}

func TestMaterializeNotSucceeded(t *testing.T) {
	task := &Task{ID: "task-1", status: StatusRunning}
	if _, err := Materialize(context.Background(), &fakeService{}, task, MaterializeConfig{Dir: t.TempDir()}); err == nil {
		t.Fatal("Materialize() err = nil; want error")
	}
}

func TestFormatFilename(t *testing.T) {
	tests := []struct {
		format  string
		title   string
		artist  string
		track   int
		variant int
		want    string
	}{
		{"track_{variant}", "", "", 0, 1, "track_1"},
		{"{track} - {artist} - {title} ({variant})", "My/Song", "Band", 3, 2, "03 - Band - My_Song (2)"},
		{"{title}", "", "", 0, 1, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatFilename(tt.format, tt.title, tt.artist, tt.track, tt.variant)
			if got != tt.want {
				t.Fatalf("FormatFilename() = %q; want %q", got, tt.want)
			}
		})
	}
}
