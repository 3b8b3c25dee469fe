package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/slauger/suno-cli/pkg/filestore"
	"github.com/slauger/suno-cli/pkg/input"
	"github.com/slauger/suno-cli/pkg/song"
	"github.com/slauger/suno-cli/pkg/sound"
	"github.com/slauger/suno-cli/pkg/storage"
	"github.com/slauger/suno-cli/pkg/sunoapi"
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

	Output         string
	FilenameFormat string
	PollInterval   time.Duration
	MaxWait        time.Duration

	Title        string
	Prompt       string
	Style        string
	Model        string
	Gender       string
	Instrumental bool
	Duration     int

	Artist        string
	Album         string
	Track         int
	Cover         string
	GenerateCover bool
	SkipTags      bool
}

// Run generates a single song and writes the tagged tracks to the output
// directory.
func Run(ctx context.Context, cfg *Config) error {
	log.Printf("generate: started\n")
	defer log.Printf("generate: ended\n")

	if cfg.Output == "" {
		return errors.New("generate: output directory is empty")
	}
	r, err := NewRunner(ctx, cfg)
	if err != nil {
		return err
	}

	paths, err := r.Process(ctx, &Params{
		Request: song.Request{
			Title:        cfg.Title,
			Prompt:       cfg.Prompt,
			Style:        cfg.Style,
			Model:        cfg.Model,
			Gender:       cfg.Gender,
			Instrumental: cfg.Instrumental,
			Duration:     cfg.Duration,
			Tags: song.Tags{
				Artist:        cfg.Artist,
				Album:         cfg.Album,
				Track:         cfg.Track,
				Cover:         cfg.Cover,
				GenerateCover: cfg.GenerateCover,
			},
		},
		Dir: cfg.Output,
	})
	if err != nil {
		return err
	}
	for _, path := range paths {
		log.Println("generate:", path)
	}
	return nil
}

// Runner holds the collaborators for one or more generation cycles. The
// batch command builds it once and reuses it for every entry.
type Runner struct {
	Client   *sunoapi.Client
	Store    *storage.Store
	FS       *filestore.Store
	Resolver *input.Resolver
	Poll     song.PollConfig
	Format   string
	SkipTags bool
	Debug    bool
}

func NewRunner(ctx context.Context, cfg *Config) (*Runner, error) {
	client, err := sunoapi.New(&sunoapi.Config{
		Key:         cfg.APIKey,
		Base:        cfg.APIBase,
		CallbackURL: cfg.CallbackURL,
		Proxy:       cfg.Proxy,
		Wait:        cfg.Wait,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	var store *storage.Store
	if cfg.DBType != "" {
		store, err = storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return nil, fmt.Errorf("generate: couldn't start orm store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("generate: couldn't migrate orm store: %w", err)
		}
	}

	var fs *filestore.Store
	if cfg.FSType != "" {
		fs, err = filestore.New(cfg.FSType, cfg.FSConn, cfg.Proxy, cfg.Debug, store)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't create file storage: %w", err)
		}
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("generate: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}

	poll := song.DefaultPoll
	if cfg.PollInterval > 0 {
		poll.Interval = cfg.PollInterval
	}
	if cfg.MaxWait > 0 {
		poll.MaxWait = cfg.MaxWait
	}
	return &Runner{
		Client:   client,
		Store:    store,
		FS:       fs,
		Resolver: input.NewResolver(httpClient),
		Poll:     poll,
		Format:   cfg.FilenameFormat,
		SkipTags: cfg.SkipTags,
		Debug:    cfg.Debug,
	}, nil
}

// Params describes one cycle.
type Params struct {
	Request song.Request
	Dir     string
	BatchID string
}

// Process runs the full cycle: resolve inputs, submit, poll, download,
// tag and archive. It returns the paths of the written tracks.
func (r *Runner) Process(ctx context.Context, p *Params) ([]string, error) {
	debug := func(format string, args ...any) {
		if !r.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	req := p.Request
	prompt, err := r.Resolver.Resolve(ctx, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't resolve prompt: %w", err)
	}
	req.Prompt = prompt
	if req.Style != "" {
		style, err := r.Resolver.Resolve(ctx, req.Style)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't resolve style: %w", err)
		}
		req.Style = style
	}

	journal := &storage.Task{
		ID:           ulid.Make().String(),
		Title:        req.Title,
		Model:        req.Model,
		Prompt:       req.Prompt,
		Style:        req.Style,
		Instrumental: req.Instrumental,
		BatchID:      p.BatchID,
	}

	task, err := song.Submit(ctx, r.Client, &req)
	if err != nil {
		return nil, err
	}
	debug("generate: submitted task %s", task.ID)
	journal.TaskID = task.ID
	r.record(ctx, journal, song.StatusPending, "")

	if err := song.Poll(ctx, r.Client, task, r.Poll); err != nil {
		var toErr *song.TimeoutError
		switch {
		case errors.As(err, &toErr):
			r.record(ctx, journal, song.StatusTimeout, err.Error())
		default:
			r.record(ctx, journal, song.StatusFailed, err.Error())
		}
		return nil, err
	}

	out, err := song.Materialize(ctx, r.Client, task, song.MaterializeConfig{
		Dir:    p.Dir,
		Format: r.Format,
		Artist: req.Tags.Artist,
		Track:  req.Tags.Track,
		Model:  req.Model,
		Prompt: req.Prompt,
		Style:  req.Style,
	})
	if err != nil {
		r.record(ctx, journal, song.StatusFailed, err.Error())
		return nil, err
	}
	for _, a := range out.Failed() {
		log.Printf("generate: couldn't download %s: %v\n", a.Track.Title, a.Err)
	}
	if len(out.Paths()) == 0 {
		err := fmt.Errorf("generate: no tracks could be downloaded for task %s", task.ID)
		r.record(ctx, journal, song.StatusFailed, err.Error())
		return nil, err
	}

	cover, err := r.coverBytes(ctx, req.Tags.Cover)
	if err != nil {
		// A broken cover shouldn't discard the downloaded audio
		log.Printf("generate: couldn't load cover: %v\n", err)
	}
	if cover == nil && req.Tags.GenerateCover {
		art, coverID, err := r.generatedCover(ctx, task.ID, p.Dir)
		if coverID != "" {
			debug("generate: cover task %s", coverID)
			journal.CoverTaskID = coverID
		}
		if err != nil {
			log.Printf("generate: couldn't generate cover: %v\n", err)
		} else {
			cover = art
		}
	}
	year := time.Now().Format("2006")
	for _, a := range out.Artifacts {
		if a.Err != nil {
			continue
		}
		if err := sound.Check(a.Path, a.Track.Duration, 10*time.Second); err != nil {
			log.Printf("generate: %v\n", err)
		}
		journal.Duration = float32(a.Track.Duration)
		if r.SkipTags {
			continue
		}
		if err := tags.Write(a.Path, tags.Meta{
			Title:  a.Track.Title,
			Artist: req.Tags.Artist,
			Album:  req.Tags.Album,
			Genre:  a.Track.Genre,
			Year:   year,
			Track:  req.Tags.Track,
		}); err != nil {
			log.Printf("generate: couldn't tag %s: %v\n", a.Path, err)
			continue
		}
		art := cover
		if art == nil && a.Track.ImageURL != "" {
			art, err = r.fetchCover(ctx, a.Track.ImageURL)
			if err != nil {
				log.Printf("generate: couldn't fetch cover art: %v\n", err)
			}
		}
		if art != nil {
			if err := tags.EmbedCover(a.Path, art); err != nil {
				log.Printf("generate: couldn't embed cover: %v\n", err)
			}
		}
	}

	paths := out.Paths()
	if r.FS != nil {
		archive := paths
		if out.MetadataPath != "" {
			archive = append(archive, out.MetadataPath)
		}
		if err := r.FS.Archive(ctx, task.ID, archive...); err != nil {
			log.Printf("generate: %v\n", err)
		}
	}

	journal.Output = p.Dir
	r.record(ctx, journal, song.StatusSuccess, "")
	return paths, nil
}

// Cover tasks report through the same record info endpoint as songs,
// just faster.
var coverPoll = song.PollConfig{
	Interval: 5 * time.Second,
	MaxWait:  5 * time.Minute,
}

// generatedCover requests cover art for a finished task, waits for it
// and saves the variants as cover_<n>.jpg next to the tracks. The first
// variant is returned for embedding. Costs extra credits.
func (r *Runner) generatedCover(ctx context.Context, taskID, dir string) ([]byte, string, error) {
	coverID, err := r.Client.GenerateCover(ctx, taskID)
	if err != nil {
		return nil, "", err
	}
	coverTask := song.Reattach(coverID)
	if err := song.Poll(ctx, r.Client, coverTask, coverPoll); err != nil {
		return nil, coverID, err
	}
	var first []byte
	for i, t := range coverTask.Result().Tracks {
		var buf bytes.Buffer
		if err := r.Client.Fetch(ctx, t.AudioURL, &buf); err != nil {
			log.Printf("generate: couldn't download cover %d: %v\n", i+1, err)
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("cover_%d.jpg", i+1))
		if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
			log.Printf("generate: couldn't save %s: %v\n", name, err)
			continue
		}
		if first == nil {
			first = buf.Bytes()
		}
	}
	if first == nil {
		return nil, coverID, fmt.Errorf("generate: no cover variants could be downloaded for task %s", coverID)
	}
	return first, coverID, nil
}

// coverBytes loads an explicit cover override from a local file or URL.
func (r *Runner) coverBytes(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, nil
	}
	if _, err := os.Stat(source); err == nil {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, err
		}
		return tags.NormalizeCover(b)
	}
	return r.fetchCover(ctx, source)
}

func (r *Runner) fetchCover(ctx context.Context, u string) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Client.Fetch(ctx, u, &buf); err != nil {
		return nil, err
	}
	return tags.NormalizeCover(buf.Bytes())
}

func (r *Runner) record(ctx context.Context, journal *storage.Task, status song.Status, errMsg string) {
	if r.Store == nil {
		return
	}
	journal.Status = string(status)
	journal.Error = errMsg
	if err := r.Store.SetTask(ctx, journal); err != nil {
		log.Printf("generate: couldn't update journal: %v\n", err)
	}
}
