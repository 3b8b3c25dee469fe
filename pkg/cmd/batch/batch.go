package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	batchfile "github.com/slauger/suno-cli/pkg/batch"
	"github.com/slauger/suno-cli/pkg/cmd/generate"
	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/storage"
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

	File           string
	Output         string
	FilenameFormat string
	PollInterval   time.Duration
	MaxWait        time.Duration

	Parallel bool
	Delay    time.Duration

	Model  string
	Gender string
	Artist string
	Album  string
}

// Run processes every song in a batch file. Entry failures are isolated;
// the run only aborts on a structural defect in the file itself.
func Run(ctx context.Context, cfg *Config) error {
	log.Printf("batch: started\n")
	defer log.Printf("batch: ended\n")

	if cfg.File == "" {
		return errors.New("batch: no batch file given")
	}

	gcfg := generate.Config{
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
	}
	runner, err := generate.NewRunner(ctx, &gcfg)
	if err != nil {
		return err
	}

	// Batch files can live on disk or behind a URL
	content, err := runner.Resolver.Resolve(ctx, cfg.File)
	if err != nil {
		return fmt.Errorf("batch: couldn't load batch file: %w", err)
	}
	f, err := batchfile.Parse(cfg.File, []byte(content))
	if err != nil {
		return err
	}
	applyDefaults(f, cfg)

	base := cfg.Output
	if base == "" {
		base = f.OutputBase
	}

	batchID := ulid.Make().String()
	mode := batchfile.Sequential
	switch {
	case cfg.Parallel:
		mode = batchfile.Parallel
	case cfg.Delay > 0:
		mode = batchfile.Delayed
	}

	o := &batchfile.Orchestrator{
		Mode:  mode,
		Delay: cfg.Delay,
		Debug: cfg.Debug,
		Run: func(ctx context.Context, job batchfile.Job) ([]string, error) {
			p := Params(job, batchID)
			return runner.Process(ctx, &p)
		},
	}
	summary, err := o.Process(ctx, f, base)
	if err != nil {
		return err
	}

	for _, r := range summary.Results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		log.Printf("batch: %d %s: %s\n", r.Index, r.Title, status)
	}
	log.Printf("batch: completed %d/%d, failed %d/%d in %s\n",
		summary.Completed, len(summary.Results), summary.Failed, len(summary.Results), summary.Elapsed.Round(time.Second))

	if runner.Store != nil {
		record := &storage.Batch{
			ID:        batchID,
			Source:    cfg.File,
			Mode:      string(mode),
			Total:     len(summary.Results),
			Succeeded: summary.Completed,
			Failed:    summary.Failed,
		}
		if err := runner.Store.SetBatch(ctx, record); err != nil {
			log.Printf("batch: couldn't record batch: %v\n", err)
		}
	}
	// Entry failures are already reported above, only structural
	// problems make the run fail
	return nil
}

// Params converts a scheduled batch job into cycle parameters.
func Params(job batchfile.Job, batchID string) generate.Params {
	e := job.Entry
	instrumental := e.Instrumental != nil && *e.Instrumental
	generateCover := e.GenerateCover != nil && *e.GenerateCover
	return generate.Params{
		Request: song.Request{
			Title:        e.Title,
			Prompt:       e.Prompt,
			Style:        e.Style,
			Model:        e.Model,
			Gender:       e.Gender,
			Instrumental: instrumental,
			Duration:     e.Duration,
			Tags: song.Tags{
				Artist:        e.Artist,
				Album:         e.Album,
				Track:         e.Track,
				Cover:         e.Cover,
				GenerateCover: generateCover,
			},
		},
		Dir:     job.Dir,
		BatchID: batchID,
	}
}

// applyDefaults layers command-level defaults under the file's own
// defaults section: entry wins over file defaults, file defaults win
// over configuration.
func applyDefaults(f *batchfile.File, cfg *Config) {
	if f.Defaults.Model == "" {
		f.Defaults.Model = cfg.Model
	}
	if f.Defaults.Gender == "" {
		f.Defaults.Gender = cfg.Gender
	}
	if f.Defaults.Artist == "" {
		f.Defaults.Artist = cfg.Artist
	}
	if f.Defaults.Album == "" {
		f.Defaults.Album = cfg.Album
	}
}
