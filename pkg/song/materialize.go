package song

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFormat names downloaded variants track_1, track_2, ...
const DefaultFormat = "track_{variant}"

// Artifact is one materialized track, or the error that prevented it.
type Artifact struct {
	Track Track
	Path  string
	Err   error
}

// Output describes what Materialize wrote to disk.
type Output struct {
	Artifacts    []Artifact
	MetadataPath string
}

// Paths returns the paths of the successfully written artifacts.
func (o *Output) Paths() []string {
	var paths []string
	for _, a := range o.Artifacts {
		if a.Err != nil {
			continue
		}
		paths = append(paths, a.Path)
	}
	return paths
}

// Failed returns the artifacts that couldn't be written.
func (o *Output) Failed() []Artifact {
	var failed []Artifact
	for _, a := range o.Artifacts {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	return failed
}

// MaterializeConfig controls artifact naming and metadata.
type MaterializeConfig struct {
	Dir    string
	Format string // filename format, placeholders {title} {artist} {track} {variant}
	Artist string
	Track  int

	// Request fields recorded in the metadata file.
	Model  string
	Prompt string
	Style  string
}

type metadataRecord struct {
	TaskID      string          `json:"task_id"`
	Model       string          `json:"model"`
	Prompt      string          `json:"prompt"`
	Style       string          `json:"style"`
	GeneratedAt time.Time       `json:"generated_at"`
	Tracks      []metadataTrack `json:"tracks"`
}

type metadataTrack struct {
	Title    string  `json:"title"`
	Genre    string  `json:"genre,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	File     string  `json:"file,omitempty"`
}

// Materialize downloads every artifact of a succeeded task into cfg.Dir and
// writes a metadata record next to them. A failed artifact is reported in
// the output without discarding artifacts already written.
func Materialize(ctx context.Context, svc Service, task *Task, cfg MaterializeConfig) (*Output, error) {
	result := task.Result()
	if task.Status() != StatusSuccess || result == nil {
		return nil, fmt.Errorf("song: task %s has no result to materialize (status %s)", task.ID, task.Status())
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("song: couldn't create output directory: %w", err)
	}
	format := cfg.Format
	if format == "" {
		format = DefaultFormat
	}

	out := &Output{}
	record := metadataRecord{
		TaskID:      task.ID,
		Model:       cfg.Model,
		Prompt:      cfg.Prompt,
		Style:       cfg.Style,
		GeneratedAt: time.Now().UTC(),
	}
	for i, track := range result.Tracks {
		variant := i + 1
		trackNum := cfg.Track
		if trackNum == 0 && len(result.Tracks) > 1 {
			trackNum = variant
		}
		name := FormatFilename(format, track.Title, cfg.Artist, trackNum, variant) + ext(track.AudioURL)
		dst := filepath.Join(cfg.Dir, name)
		artifact := Artifact{Track: track, Path: dst}
		if err := fetchFile(ctx, svc, track.AudioURL, dst); err != nil {
			artifact.Err = err
			artifact.Path = ""
		}
		out.Artifacts = append(out.Artifacts, artifact)
		mt := metadataTrack{
			Title:    track.Title,
			Genre:    track.Genre,
			Duration: track.Duration,
			ImageURL: track.ImageURL,
		}
		if artifact.Err == nil {
			mt.File = name
		}
		record.Tracks = append(record.Tracks, mt)
	}

	b, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("song: couldn't marshal metadata: %w", err)
	}
	metaPath := filepath.Join(cfg.Dir, fmt.Sprintf("metadata-%s.json", task.ID))
	if err := os.WriteFile(metaPath, b, 0644); err != nil {
		return nil, fmt.Errorf("song: couldn't write metadata: %w", err)
	}
	out.MetadataPath = metaPath
	return out, nil
}

func fetchFile(ctx context.Context, svc Service, u, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("song: couldn't create %q: %w", dst, err)
	}
	defer f.Close()
	if err := svc.Fetch(ctx, u, f); err != nil {
		_ = os.Remove(dst)
		return &TransportError{Err: err}
	}
	return nil
}

func ext(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ".mp3"
	}
	e := path.Ext(parsed.Path)
	if e == "" {
		return ".mp3"
	}
	return e
}

// FormatFilename fills the {title}, {artist}, {track} and {variant}
// placeholders, sanitizing values for the filesystem. Track numbers below
// ten get a leading zero.
func FormatFilename(format, title, artist string, track, variant int) string {
	var trackText string
	if track > 0 {
		trackText = fmt.Sprintf("%02d", track)
	}
	name := format
	name = strings.ReplaceAll(name, "{title}", sanitize(title))
	name = strings.ReplaceAll(name, "{artist}", sanitize(artist))
	name = strings.ReplaceAll(name, "{track}", trackText)
	name = strings.ReplaceAll(name, "{variant}", fmt.Sprintf("%d", variant))
	return strings.TrimSpace(name)
}

func sanitize(value string) string {
	if value == "" {
		return "Unknown"
	}
	for _, c := range `<>:"/\|?*` {
		value = strings.ReplaceAll(value, string(c), "_")
	}
	return strings.TrimSpace(value)
}
