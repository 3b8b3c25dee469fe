package filestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/slauger/suno-cli/pkg/filestore/local"
	"github.com/slauger/suno-cli/pkg/filestore/s3"
	"github.com/slauger/suno-cli/pkg/filestore/tgstore"
	"github.com/slauger/suno-cli/pkg/storage"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store archives generated artifacts in a configurable backend so they
// survive local cleanup.
type Store struct {
	fs fs
}

// Name builds the archive name for an artifact that belongs to a task.
func Name(id, path string) string {
	return fmt.Sprintf("%s_%s", id, filepath.Base(path))
}

// Archive uploads the given files under the task id.
func (s *Store) Archive(ctx context.Context, id string, paths ...string) error {
	for _, path := range paths {
		if err := s.fs.Upload(ctx, path, Name(id, path)); err != nil {
			return fmt.Errorf("filestore: couldn't archive %s: %w", path, err)
		}
	}
	return nil
}

// Retrieve downloads one archived artifact to path.
func (s *Store) Retrieve(ctx context.Context, path, name string) error {
	if err := s.fs.Download(ctx, path, name); err != nil {
		return fmt.Errorf("filestore: couldn't retrieve %s: %w", name, err)
	}
	return nil
}

// New builds a store from a backend type and connection string:
// local uses conn as the root directory, s3 expects key:secret@bucket.region
// and telegram expects token@chatid.
func New(typ, conn, proxy string, debug bool, store *storage.Store) (*Store, error) {
	var fs fs
	switch typ {
	case "telegram":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid telegram connection string %q", conn)
		}
		token := split[0]
		chat, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid telegram chat id %q: %w", split[1], err)
		}
		// The telegram backend keeps message references in the journal
		if store == nil {
			return nil, errors.New("filestore: telegram storage requires a database, set db-type")
		}
		candidate, err := tgstore.New(token, chat, proxy, debug, store)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		candidate, err := s3.New(auth[0], auth[1], loc[1], loc[0], debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}
