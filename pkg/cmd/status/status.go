package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/storage"
	"github.com/slauger/suno-cli/pkg/sunoapi"
)

type Config struct {
	Debug bool
	Proxy string
	Wait  time.Duration

	APIKey  string
	APIBase string

	DBType string
	DBConn string

	TaskID string
}

// Run performs one status query for a task and prints the result. The
// journal entry is refreshed when one exists.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.TaskID == "" {
		return errors.New("status: task id is empty")
	}
	client, err := sunoapi.New(&sunoapi.Config{
		Key:   cfg.APIKey,
		Base:  cfg.APIBase,
		Proxy: cfg.Proxy,
		Wait:  cfg.Wait,
		Debug: cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	rec, err := client.Status(ctx, cfg.TaskID)
	if err != nil {
		return err
	}

	log.Printf("status: task %s is %s\n", cfg.TaskID, rec.State)
	if rec.Error != "" {
		log.Printf("status: error: %s\n", rec.Error)
	}
	for i, t := range rec.Tracks {
		log.Printf("status: track %d: %s (%.0fs) %s\n", i+1, t.Title, t.Duration, t.AudioURL)
	}

	if cfg.DBType == "" {
		return nil
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("status: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("status: couldn't start orm store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("status: couldn't migrate orm store: %w", err)
	}
	task, err := store.GetTaskByRemoteID(ctx, cfg.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch rec.State {
	case song.StateSuccess:
		task.Status = string(song.StatusSuccess)
	case song.StateFailed:
		task.Status = string(song.StatusFailed)
		task.Error = rec.Error
	default:
		task.Status = string(song.StatusRunning)
	}
	if err := store.SetTask(ctx, task); err != nil {
		return err
	}
	return nil
}
