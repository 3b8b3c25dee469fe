package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseYAML(t *testing.T) {
	content := []byte(`
output_base: ./my-album
use_subdirectories: false
defaults:
  style: synthwave
  model: V4_5
  artist: Synth Machine
songs:
  - title: Neon Nights
    prompt: city lights
  - title: Daybreak
    prompt: sunrise
    style: ambient
    track: 7
`)
	f, err := Parse("songs.yaml", content)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if f.OutputBase != "./my-album" {
		t.Errorf("output base = %q; want ./my-album", f.OutputBase)
	}
	if f.Subdirs() {
		t.Errorf("Subdirs() = true; want false")
	}
	if len(f.Songs) != 2 {
		t.Fatalf("len(songs) = %d; want 2", len(f.Songs))
	}

	first := f.merged(f.Songs[0])
	if first.Style != "synthwave" || first.Model != "V4_5" || first.Artist != "Synth Machine" {
		t.Errorf("merged first = %+v; want defaults applied", first)
	}
	second := f.merged(f.Songs[1])
	if second.Style != "ambient" {
		t.Errorf("merged second style = %q; entry value must win over defaults", second.Style)
	}
}

func TestParseCSV(t *testing.T) {
	content := []byte("title,prompt,style,track\nNeon Nights,city lights,synthwave,1\nDaybreak,sunrise,ambient,2\n")
	f, err := Parse("songs.csv", content)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(f.Songs) != 2 {
		t.Fatalf("len(songs) = %d; want 2", len(f.Songs))
	}
	if f.Songs[1].Title != "Daybreak" || f.Songs[1].Track != 2 {
		t.Errorf("songs[1] = %+v; want Daybreak track 2", f.Songs[1])
	}
}

func TestDir(t *testing.T) {
	subdirs := false
	tests := []struct {
		name string
		file *File
		idx  int
		e    Entry
		want string
	}{
		{
			name: "subdirectory per song",
			file: &File{},
			idx:  3,
			want: filepath.Join("base", "song_03"),
		},
		{
			name: "flat layout",
			file: &File{UseSubdirectories: &subdirs},
			idx:  3,
			want: "base",
		},
		{
			name: "relative override",
			file: &File{},
			idx:  1,
			e:    Entry{Output: "intro"},
			want: filepath.Join("base", "intro"),
		},
		{
			name: "absolute override",
			file: &File{},
			idx:  1,
			e:    Entry{Output: "/out/intro"},
			want: "/out/intro",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.dir("base", tt.idx, tt.e); got != tt.want {
				t.Errorf("dir() = %q; want %q", got, tt.want)
			}
		})
	}
}

func testFile(n int) *File {
	f := &File{Defaults: Entry{Style: "synthwave"}}
	for i := 1; i <= n; i++ {
		f.Songs = append(f.Songs, Entry{
			Title:  fmt.Sprintf("Song %d", i),
			Prompt: "la la la",
		})
	}
	return f
}

func TestProcessFailureIsolation(t *testing.T) {
	o := &Orchestrator{
		Run: func(ctx context.Context, job Job) ([]string, error) {
			if job.Index == 2 {
				return nil, errors.New("generation failed")
			}
			return []string{fmt.Sprintf("track_%d.mp3", job.Index)}, nil
		},
	}
	summary, err := o.Process(context.Background(), testFile(3), "out")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if summary.Completed != 2 || summary.Failed != 1 {
		t.Errorf("tally = %d/%d; want 2 completed, 1 failed", summary.Completed, summary.Failed)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("len(results) = %d; want 3", len(summary.Results))
	}
	for i, r := range summary.Results {
		if r.Index != i+1 {
			t.Errorf("results[%d].Index = %d; want %d", i, r.Index, i+1)
		}
	}
	if summary.Results[1].Err == nil {
		t.Errorf("results[1].Err = nil; want failure")
	}
	if summary.Results[0].Err != nil || summary.Results[2].Err != nil {
		t.Errorf("siblings of failed entry must succeed")
	}
}

func TestProcessStructuralFailure(t *testing.T) {
	var calls atomic.Int32
	o := &Orchestrator{
		Run: func(ctx context.Context, job Job) ([]string, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	f := testFile(3)
	f.Songs[1].Title = ""
	if _, err := o.Process(context.Background(), f, "out"); err == nil {
		t.Fatal("Process() error = nil; want missing title error")
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("run calls = %d; want 0 before validation passes", got)
	}

	if _, err := o.Process(context.Background(), &File{}, "out"); err == nil {
		t.Fatal("Process() error = nil; want empty batch error")
	}
	if _, err := o.Process(context.Background(), testFile(1), ""); err == nil {
		t.Fatal("Process() error = nil; want missing output error")
	}
}

func TestProcessTrackDefaults(t *testing.T) {
	var mu sync.Mutex
	tracks := map[int]int{}
	o := &Orchestrator{
		Run: func(ctx context.Context, job Job) ([]string, error) {
			mu.Lock()
			tracks[job.Index] = job.Entry.Track
			mu.Unlock()
			return nil, nil
		},
	}
	f := testFile(3)
	f.Songs[2].Track = 11
	if _, err := o.Process(context.Background(), f, "out"); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if tracks[1] != 1 || tracks[2] != 2 {
		t.Errorf("tracks = %v; want position as default track number", tracks)
	}
	if tracks[3] != 11 {
		t.Errorf("tracks[3] = %d; explicit track must win", tracks[3])
	}
}

func TestProcessParallel(t *testing.T) {
	const n = 4
	// Every job blocks until all jobs have started, which only resolves
	// if the cycles really run concurrently.
	var started sync.WaitGroup
	started.Add(n)
	o := &Orchestrator{
		Mode: Parallel,
		Run: func(ctx context.Context, job Job) ([]string, error) {
			started.Done()
			started.Wait()
			return []string{fmt.Sprintf("song_%d", job.Index)}, nil
		},
	}
	summary, err := o.Process(context.Background(), testFile(n), "out")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if summary.Completed != n {
		t.Errorf("completed = %d; want %d", summary.Completed, n)
	}
	for i, r := range summary.Results {
		if r.Index != i+1 {
			t.Errorf("results[%d].Index = %d; order must match the batch file", i, r.Index)
		}
	}
}

func TestProcessDelayed(t *testing.T) {
	delay := 30 * time.Millisecond
	o := &Orchestrator{
		Mode:  Delayed,
		Delay: delay,
		Run: func(ctx context.Context, job Job) ([]string, error) {
			return nil, nil
		},
	}
	start := time.Now()
	summary, err := o.Process(context.Background(), testFile(3), "out")
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	// Two gaps between three entries
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("elapsed = %s; want at least %s", elapsed, 2*delay)
	}
	if summary.Completed != 3 {
		t.Errorf("completed = %d; want 3", summary.Completed)
	}
}

func TestProcessDelayedCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		Mode:  Delayed,
		Delay: time.Minute,
		Run: func(ctx context.Context, job Job) ([]string, error) {
			cancel()
			return nil, nil
		},
	}
	done := make(chan error, 1)
	go func() {
		_, err := o.Process(ctx, testFile(2), "out")
		done <- err
	}()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Process() error = %v; want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Process() didn't react to cancellation")
	}
}
