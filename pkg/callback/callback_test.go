package callback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/slauger/suno-cli/pkg/storage"
)

func newServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.New("sqlite", filepath.Join(t.TempDir(), "journal.db"), false)
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return NewServer(store, false), store
}

func post(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/callback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("couldn't post callback: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCallbackComplete(t *testing.T) {
	ctx := context.Background()
	s, store := newServer(t)
	task := &storage.Task{
		ID:     ulid.Make().String(),
		TaskID: "task-123",
		Status: "pending",
	}
	if err := store.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() error: %v", err)
	}

	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()

	resp := post(t, srv, `{"code":200,"msg":"success","data":{
		"callbackType":"complete","task_id":"task-123",
		"data":[{"id":"a","title":"Neon Nights","audio_url":"https://cdn/a.mp3","duration":182.4}]}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	got, err := store.GetTaskByRemoteID(ctx, "task-123")
	if err != nil {
		t.Fatalf("GetTaskByRemoteID() error: %v", err)
	}
	if got.Status != "success" {
		t.Errorf("status = %q; want success", got.Status)
	}
	if got.Duration == 0 {
		t.Errorf("duration = 0; want reported duration")
	}
}

func TestCallbackLateNotification(t *testing.T) {
	ctx := context.Background()
	s, store := newServer(t)
	task := &storage.Task{
		ID:     ulid.Make().String(),
		TaskID: "task-77",
		Status: "success",
	}
	if err := store.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() error: %v", err)
	}

	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()

	// A replayed text notification must not move a settled task
	resp := post(t, srv, `{"code":200,"msg":"ok","data":{"callbackType":"text","task_id":"task-77"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	got, err := store.GetTaskByRemoteID(ctx, "task-77")
	if err != nil {
		t.Fatalf("GetTaskByRemoteID() error: %v", err)
	}
	if got.Status != "success" {
		t.Errorf("status = %q; want success", got.Status)
	}
}

func TestCallbackError(t *testing.T) {
	ctx := context.Background()
	s, store := newServer(t)
	task := &storage.Task{
		ID:     ulid.Make().String(),
		TaskID: "task-9",
		Status: "running",
	}
	if err := store.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() error: %v", err)
	}

	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()

	resp := post(t, srv, `{"code":400,"msg":"content policy violation","data":{"task_id":"task-9"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	got, err := store.GetTaskByRemoteID(ctx, "task-9")
	if err != nil {
		t.Fatalf("GetTaskByRemoteID() error: %v", err)
	}
	if got.Status != "failed" {
		t.Errorf("status = %q; want failed", got.Status)
	}
	if got.Error != "content policy violation" {
		t.Errorf("error = %q; want content policy violation", got.Error)
	}
}

func TestCallbackUnknownTask(t *testing.T) {
	s, _ := newServer(t)
	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()

	// Acknowledge unknown tasks so the service stops retrying
	resp := post(t, srv, `{"code":200,"msg":"ok","data":{"callbackType":"complete","task_id":"unknown"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
}

func TestCallbackBadPayload(t *testing.T) {
	s, _ := newServer(t)
	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()

	if resp := post(t, srv, `not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d; want 400 for invalid json", resp.StatusCode)
	}
	if resp := post(t, srv, `{"code":200,"data":{}}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d; want 400 for missing task id", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t)
	srv := httptest.NewServer(s.Router(nil))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("couldn't get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d; want 200", resp.StatusCode)
	}
}
