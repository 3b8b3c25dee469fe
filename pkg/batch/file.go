package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Entry describes one song in a batch file. The same shape doubles as
// the defaults section, whose values fill gaps in each entry.
type Entry struct {
	Title         string `yaml:"title" csv:"title"`
	Prompt        string `yaml:"prompt" csv:"prompt"`
	Style         string `yaml:"style" csv:"style"`
	Model         string `yaml:"model" csv:"model"`
	Gender        string `yaml:"gender" csv:"gender"`
	Instrumental  *bool  `yaml:"instrumental" csv:"instrumental"`
	Duration      int    `yaml:"duration" csv:"duration"`
	Artist        string `yaml:"artist" csv:"artist"`
	Album         string `yaml:"album" csv:"album"`
	Track         int    `yaml:"track" csv:"track"`
	Cover         string `yaml:"cover" csv:"cover"`
	GenerateCover *bool  `yaml:"generate_cover" csv:"generate_cover"`
	Output        string `yaml:"output" csv:"output"`
}

// File is a parsed batch definition.
type File struct {
	OutputBase        string  `yaml:"output_base"`
	UseSubdirectories *bool   `yaml:"use_subdirectories"`
	Defaults          Entry   `yaml:"defaults"`
	Songs             []Entry `yaml:"songs"`
}

// Subdirs reports whether each song gets its own subdirectory.
// Defaults to true.
func (f *File) Subdirs() bool {
	if f.UseSubdirectories == nil {
		return true
	}
	return *f.UseSubdirectories
}

// Parse decodes batch content. The name's extension selects the format:
// .csv is a flat song list, anything else is the YAML layout with
// output_base, defaults and songs sections.
func Parse(name string, content []byte) (*File, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		var songs []Entry
		if err := gocsv.UnmarshalBytes(content, &songs); err != nil {
			return nil, fmt.Errorf("batch: couldn't parse csv %s: %w", name, err)
		}
		return &File{Songs: songs}, nil
	}
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("batch: couldn't parse yaml %s: %w", name, err)
	}
	return &f, nil
}

// merged returns the entry with gaps filled from the defaults section.
// Entry values win over defaults.
func (f *File) merged(e Entry) Entry {
	d := f.Defaults
	if e.Prompt == "" {
		e.Prompt = d.Prompt
	}
	if e.Style == "" {
		e.Style = d.Style
	}
	if e.Model == "" {
		e.Model = d.Model
	}
	if e.Gender == "" {
		e.Gender = d.Gender
	}
	if e.Instrumental == nil {
		e.Instrumental = d.Instrumental
	}
	if e.Duration == 0 {
		e.Duration = d.Duration
	}
	if e.Artist == "" {
		e.Artist = d.Artist
	}
	if e.Album == "" {
		e.Album = d.Album
	}
	if e.Cover == "" {
		e.Cover = d.Cover
	}
	if e.GenerateCover == nil {
		e.GenerateCover = d.GenerateCover
	}
	return e
}

// dir resolves the output directory for the song at 1-based index idx.
func (f *File) dir(base string, idx int, e Entry) string {
	if e.Output != "" {
		if filepath.IsAbs(e.Output) {
			return e.Output
		}
		return filepath.Join(base, e.Output)
	}
	if f.Subdirs() {
		return filepath.Join(base, fmt.Sprintf("song_%02d", idx))
	}
	return base
}
