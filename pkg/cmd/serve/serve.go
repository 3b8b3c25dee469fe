package serve

import (
	"context"
	"errors"

	"github.com/slauger/suno-cli/pkg/callback"
	"github.com/slauger/suno-cli/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr        string
	Credentials map[string]string
}

// Run starts the callback receiver and blocks until the context ends.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return errors.New("serve: database type is empty")
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
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return callback.NewServer(store, cfg.Debug).Run(ctx, addr, cfg.Credentials)
}
