package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/slauger/suno-cli/pkg/cmd/generate"
	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/tags"
)

type Config struct {
	Debug bool
	Proxy string
	Wait  time.Duration

	APIKey      string
	APIBase     string
	CallbackURL string

	DBType string
	DBConn string
	FSType string
	FSConn string

	TaskID         string
	Output         string
	FilenameFormat string
	PollInterval   time.Duration
	MaxWait        time.Duration

	Artist string
	Album  string
	Track  int
}

// Run reattaches to an already submitted task and downloads its tracks.
// Useful after a local timeout: the remote task keeps running and stays
// queryable by id.
func Run(ctx context.Context, cfg *Config) error {
	log.Printf("download: started\n")
	defer log.Printf("download: ended\n")

	if cfg.TaskID == "" {
		return errors.New("download: task id is empty")
	}
	if cfg.Output == "" {
		return errors.New("download: output directory is empty")
	}

	r, err := generate.NewRunner(ctx, &generate.Config{
		Debug:          cfg.Debug,
		Proxy:          cfg.Proxy,
		Wait:           cfg.Wait,
		APIKey:         cfg.APIKey,
		APIBase:        cfg.APIBase,
		CallbackURL:    cfg.CallbackURL,
		DBType:         cfg.DBType,
		DBConn:         cfg.DBConn,
		FSType:         cfg.FSType,
		FSConn:         cfg.FSConn,
		FilenameFormat: cfg.FilenameFormat,
		PollInterval:   cfg.PollInterval,
		MaxWait:        cfg.MaxWait,
	})
	if err != nil {
		return err
	}

	// Without an explicit wait the task has to be finished already
	if cfg.MaxWait == 0 {
		rec, err := r.Client.Status(ctx, cfg.TaskID)
		if err != nil {
			return err
		}
		switch rec.State {
		case song.StateSuccess:
		case song.StateFailed:
			return fmt.Errorf("download: task %s failed: %s", cfg.TaskID, rec.Error)
		default:
			return fmt.Errorf("download: task %s is still %s, retry later or set -max-wait to wait for it", cfg.TaskID, rec.State)
		}
	}

	task := song.Reattach(cfg.TaskID)
	if err := song.Poll(ctx, r.Client, task, r.Poll); err != nil {
		return err
	}

	out, err := song.Materialize(ctx, r.Client, task, song.MaterializeConfig{
		Dir:    cfg.Output,
		Format: cfg.FilenameFormat,
		Artist: cfg.Artist,
		Track:  cfg.Track,
	})
	if err != nil {
		return err
	}
	for _, a := range out.Failed() {
		log.Printf("download: couldn't download %s: %v\n", a.Track.Title, a.Err)
	}
	paths := out.Paths()
	if len(paths) == 0 {
		return fmt.Errorf("download: no tracks could be downloaded for task %s", cfg.TaskID)
	}

	year := time.Now().Format("2006")
	for _, a := range out.Artifacts {
		if a.Err != nil {
			continue
		}
		if err := tags.Write(a.Path, tags.Meta{
			Title:  a.Track.Title,
			Artist: cfg.Artist,
			Album:  cfg.Album,
			Genre:  a.Track.Genre,
			Year:   year,
			Track:  cfg.Track,
		}); err != nil {
			log.Printf("download: couldn't tag %s: %v\n", a.Path, err)
		}
		log.Println("download:", a.Path)
	}

	if r.FS != nil {
		if err := r.FS.Archive(ctx, cfg.TaskID, paths...); err != nil {
			log.Printf("download: %v\n", err)
		}
	}
	return nil
}
