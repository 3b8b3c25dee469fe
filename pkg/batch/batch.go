package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Mode selects how the orchestrator schedules entries.
type Mode string

const (
	// Sequential runs each entry's full cycle before starting the next.
	Sequential Mode = "sequential"
	// Delayed is sequential with a pause between entries.
	Delayed Mode = "delayed"
	// Parallel runs every entry's cycle concurrently.
	Parallel Mode = "parallel"
)

// Job is one scheduled entry with its defaults applied and output
// directory resolved.
type Job struct {
	Index int
	Entry Entry
	Dir   string
}

// RunFunc executes the full generation cycle for one job and returns
// the materialized file paths. Failures are isolated per entry.
type RunFunc func(ctx context.Context, job Job) ([]string, error)

// Result is the outcome of one entry, in batch order.
type Result struct {
	Index int
	Title string
	Paths []string
	Err   error
}

// Summary tallies a finished batch. Results keeps the batch file order
// regardless of mode.
type Summary struct {
	Results   []Result
	Completed int
	Failed    int
	Elapsed   time.Duration
}

type Orchestrator struct {
	Run   RunFunc
	Mode  Mode
	Delay time.Duration
	Debug bool
}

// Process validates the batch and runs every entry according to the
// configured mode. A structural defect in the file aborts before any
// entry starts; individual entry failures are recorded and the rest of
// the batch continues.
func (o *Orchestrator) Process(ctx context.Context, f *File, base string) (*Summary, error) {
	if o.Run == nil {
		return nil, errors.New("batch: run function is nil")
	}
	if len(f.Songs) == 0 {
		return nil, errors.New("batch: no songs in batch file")
	}
	if base == "" {
		return nil, errors.New("batch: no output directory configured")
	}

	jobs := make([]Job, 0, len(f.Songs))
	for i, raw := range f.Songs {
		idx := i + 1
		e := f.merged(raw)
		if e.Title == "" {
			return nil, fmt.Errorf("batch: song %d missing required field title", idx)
		}
		if e.Prompt == "" {
			return nil, fmt.Errorf("batch: song %d missing prompt", idx)
		}
		if e.Style == "" {
			return nil, fmt.Errorf("batch: song %d missing style", idx)
		}
		if e.Track == 0 {
			e.Track = idx
		}
		jobs = append(jobs, Job{
			Index: idx,
			Entry: e,
			Dir:   f.dir(base, idx, raw),
		})
	}

	start := time.Now()
	var results []Result
	var err error
	switch o.Mode {
	case Parallel:
		results = o.parallel(ctx, jobs)
	case Sequential, Delayed, "":
		results, err = o.sequential(ctx, jobs)
	default:
		return nil, fmt.Errorf("batch: unknown mode: %s", o.Mode)
	}
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Results: results,
		Elapsed: time.Since(start),
	}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Completed++
		}
	}
	return summary, nil
}

func (o *Orchestrator) sequential(ctx context.Context, jobs []Job) ([]Result, error) {
	delay := o.Delay
	if o.Mode != Delayed {
		delay = 0
	}
	var results []Result
	for i, job := range jobs {
		o.log("batch: starting song %d/%d: %s", job.Index, len(jobs), job.Entry.Title)
		paths, err := o.Run(ctx, job)
		if err != nil {
			log.Printf("batch: song %d failed: %v\n", job.Index, err)
		}
		results = append(results, Result{
			Index: job.Index,
			Title: job.Entry.Title,
			Paths: paths,
			Err:   err,
		})
		if delay > 0 && i < len(jobs)-1 {
			o.log("batch: waiting %s before next song", delay)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
	return results, nil
}

func (o *Orchestrator) parallel(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.log("batch: starting song %d/%d: %s", job.Index, len(jobs), job.Entry.Title)
			paths, err := o.Run(ctx, job)
			if err != nil {
				log.Printf("batch: song %d failed: %v\n", job.Index, err)
			}
			results[i] = Result{
				Index: job.Index,
				Title: job.Entry.Title,
				Paths: paths,
				Err:   err,
			}
		}()
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.Debug {
		format += "\n"
		log.Printf(format, args...)
	}
}
