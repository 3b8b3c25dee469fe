package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New("sqlite", filepath.Join(t.TempDir(), "journal.db"), false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return s
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New("oracle", "dsn", false); err == nil {
		t.Fatal("New() error = nil; want unknown db type")
	}
}

func TestStartOpenFailure(t *testing.T) {
	// sqlite can't create a database file in a directory that doesn't exist
	s, err := New("sqlite", filepath.Join(t.TempDir(), "missing", "journal.db"), false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil; want open failure")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	task := &Task{
		ID:     ulid.Make().String(),
		TaskID: "task-123",
		Title:  "Neon Nights",
		Model:  "V4_5",
		Prompt: "city lights",
		Style:  "synthwave",
		Status: "pending",
	}
	if err := s.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() error: %v", err)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if got.TaskID != "task-123" || got.Title != "Neon Nights" {
		t.Errorf("GetTask() = %+v; want saved task", got)
	}

	got, err = s.GetTaskByRemoteID(ctx, "task-123")
	if err != nil {
		t.Fatalf("GetTaskByRemoteID() error: %v", err)
	}
	if got.ID != task.ID {
		t.Errorf("GetTaskByRemoteID() id = %q; want %q", got.ID, task.ID)
	}

	task.Status = "success"
	task.Output = "/tmp/out"
	if err := s.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() update error: %v", err)
	}
	got, err = s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if got.Status != "success" || got.Output != "/tmp/out" {
		t.Errorf("updated task = %+v; want success with output", got)
	}
}

func TestTaskNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.GetTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask() error = %v; want ErrNotFound", err)
	}
	if _, err := s.GetTaskByRemoteID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTaskByRemoteID() error = %v; want ErrNotFound", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for i, status := range []string{"pending", "success", "failed", "success"} {
		task := &Task{
			ID:     ulid.Make().String(),
			TaskID: ulid.Make().String(),
			Title:  "t",
			Status: status,
		}
		if err := s.SetTask(ctx, task); err != nil {
			t.Fatalf("SetTask() %d error: %v", i, err)
		}
	}

	vs, err := s.ListTasks(ctx, 1, 10, "created_at asc", Where("status = ?", "success"))
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if len(vs) != 2 {
		t.Errorf("len(tasks) = %d; want 2", len(vs))
	}
}

func TestBatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	batch := &Batch{
		ID:     ulid.Make().String(),
		Source: "songs.yaml",
		Mode:   "parallel",
		Total:  3,
	}
	if err := s.SetBatch(ctx, batch); err != nil {
		t.Fatalf("SetBatch() error: %v", err)
	}
	batch.Succeeded = 2
	batch.Failed = 1
	if err := s.SetBatch(ctx, batch); err != nil {
		t.Fatalf("SetBatch() update error: %v", err)
	}

	got, err := s.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch() error: %v", err)
	}
	if got.Succeeded != 2 || got.Failed != 1 {
		t.Errorf("batch tally = %d/%d; want 2/1", got.Succeeded, got.Failed)
	}
}
