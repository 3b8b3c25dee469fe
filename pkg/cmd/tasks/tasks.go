package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/slauger/suno-cli/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Status string
	Batch  string
	Page   int
	Size   int
}

// Run lists journal entries, newest first.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return errors.New("tasks: database type is empty")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return err
	}
	if err := store.Start(ctx); err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	page := cfg.Page
	if page < 1 {
		page = 1
	}
	size := cfg.Size
	if size < 1 {
		size = 20
	}
	var filters []storage.Filter
	if cfg.Status != "" {
		filters = append(filters, storage.Where("status = ?", cfg.Status))
	}
	if cfg.Batch != "" {
		filters = append(filters, storage.Where("batch_id = ?", cfg.Batch))
	}

	items, err := store.ListTasks(ctx, page, size, "created_at desc", filters...)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Printf("tasks: no entries\n")
		return nil
	}
	for _, t := range items {
		line := fmt.Sprintf("%s %s %-8s %q", t.CreatedAt.Format("2006-01-02 15:04"), t.TaskID, t.Status, t.Title)
		if t.Error != "" {
			line += " error=" + t.Error
		}
		if t.Output != "" {
			line += " output=" + t.Output
		}
		log.Println("tasks:", line)
	}
	return nil
}
