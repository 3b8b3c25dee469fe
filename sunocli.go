package sunocli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/slauger/suno-cli/pkg/batch"
	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/sunoapi"
)

type Config struct {
	APIKey string
	Proxy  string
	Wait   time.Duration
	Debug  bool
}

// GenerateSong generates a song and downloads its tracks to the output
// folder. It is the programmatic equivalent of the generate command,
// without journal or archive support.
func GenerateSong(ctx context.Context, cfg *Config, req *song.Request, output string) ([]string, error) {
	client, err := sunoapi.New(&sunoapi.Config{
		Key:   cfg.APIKey,
		Proxy: cfg.Proxy,
		Wait:  cfg.Wait,
		Debug: cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	task, err := song.Submit(ctx, client, req)
	if err != nil {
		return nil, err
	}
	log.Println("task:", task.ID)
	if err := song.Poll(ctx, client, task, song.DefaultPoll); err != nil {
		return nil, err
	}
	out, err := song.Materialize(ctx, client, task, song.MaterializeConfig{
		Dir:    output,
		Model:  req.Model,
		Prompt: req.Prompt,
		Style:  req.Style,
	})
	if err != nil {
		return nil, err
	}
	for _, a := range out.Failed() {
		log.Printf("couldn't download %s: %v\n", a.Track.Title, a.Err)
	}
	paths := out.Paths()
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tracks could be downloaded for task %s", task.ID)
	}
	return paths, nil
}

// RunBatch processes a parsed batch file with the given scheduling mode,
// without journal or archive support. Entry failures are recorded in the
// summary, not returned.
func RunBatch(ctx context.Context, cfg *Config, f *batch.File, base string, mode batch.Mode, delay time.Duration) (*batch.Summary, error) {
	o := &batch.Orchestrator{
		Mode:  mode,
		Delay: delay,
		Debug: cfg.Debug,
		Run: func(ctx context.Context, job batch.Job) ([]string, error) {
			e := job.Entry
			req := &song.Request{
				Title:        e.Title,
				Prompt:       e.Prompt,
				Style:        e.Style,
				Model:        e.Model,
				Gender:       e.Gender,
				Instrumental: e.Instrumental != nil && *e.Instrumental,
				Duration:     e.Duration,
			}
			return GenerateSong(ctx, cfg, req, job.Dir)
		},
	}
	return o.Process(ctx, f, base)
}
