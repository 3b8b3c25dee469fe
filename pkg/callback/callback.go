package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/storage"
)

// Server receives completion notifications from the generation service
// and records them in the journal. It complements polling: a task that
// timed out locally still gets its final state when the callback lands.
type Server struct {
	store *storage.Store
	debug bool
}

func NewServer(store *storage.Store, debug bool) *Server {
	return &Server{
		store: store,
		debug: debug,
	}
}

// payload is the notification body. The service spells the task id
// differently in callbacks and status responses.
type payload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		CallbackType string `json:"callbackType"`
		TaskID       string `json:"task_id"`
		AltTaskID    string `json:"taskId"`
		Data         []struct {
			ID       string  `json:"id"`
			Title    string  `json:"title"`
			AudioURL string  `json:"audio_url"`
			Duration float64 `json:"duration"`
		} `json:"data"`
	} `json:"data"`
}

func (p *payload) taskID() string {
	if p.Data.TaskID != "" {
		return p.Data.TaskID
	}
	return p.Data.AltTaskID
}

// Router builds the http handler.
func (s *Server) Router(credentials map[string]string) chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if len(credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", credentials))
	}
	if s.debug {
		mux.Use(middleware.Logger)
	}

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Post("/callback", s.handleCallback)
	return mux
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id := p.taskID()
	if id == "" {
		http.Error(w, "missing task id", http.StatusBadRequest)
		return
	}
	if s.debug {
		log.Printf("callback: received %s for task %s\n", p.Data.CallbackType, id)
	}

	task, err := s.store.GetTaskByRemoteID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		// Not ours, acknowledge anyway so the service stops retrying
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		log.Printf("callback: couldn't load task %s: %v\n", id, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	// Late or replayed notifications must not move a settled task
	if song.Status(task.Status).Terminal() {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch {
	case p.Code != 0 && p.Code != 200:
		task.Status = string(song.StatusFailed)
		task.Error = p.Msg
	case p.Data.CallbackType == "complete":
		task.Status = string(song.StatusSuccess)
		if len(p.Data.Data) > 0 {
			task.Duration = float32(p.Data.Data[0].Duration)
		}
	default:
		// text and first callbacks mean generation is still running
		task.Status = string(song.StatusRunning)
	}
	if err := s.store.SetTask(r.Context(), task); err != nil {
		log.Printf("callback: couldn't update task %s: %v\n", id, err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Run serves the router on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, credentials map[string]string) error {
	split := strings.Split(addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("callback: invalid address: %s", addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("callback: invalid port: %s", split[1])
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.Router(credentials),
	}
	errC := make(chan error, 1)
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("callback: starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("callback: server failed: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("callback: couldn't shut down server: %w", err)
	}
	return nil
}
