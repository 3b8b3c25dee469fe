package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// BinPath is the path to the ffmpeg binary
var BinPath = "ffmpeg"

// Installed reports whether the ffmpeg binary can be executed.
func Installed(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, BinPath, "-version")
	return cmd.Run() == nil
}

// VideoConfig controls the MP3 to MP4 conversion.
type VideoConfig struct {
	// Cover is an explicit image file. When empty the cover embedded in
	// the MP3 tag is used.
	Cover      string
	Resolution string
	Framerate  int
	Overwrite  bool
}

func (c *VideoConfig) resolution() string {
	if c.Resolution == "" {
		return "1920x1080"
	}
	return c.Resolution
}

func (c *VideoConfig) framerate() int {
	if c.Framerate == 0 {
		return 1
	}
	return c.Framerate
}

// ToVideo renders the MP3 as an MP4 with a static cover image, encoded
// for video platform uploads. Returns the output path.
func ToVideo(ctx context.Context, input, output string, cfg *VideoConfig) (string, error) {
	if cfg == nil {
		cfg = &VideoConfig{}
	}
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't find input: %w", err)
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".mp4"
	}
	if !cfg.Overwrite {
		if _, err := os.Stat(output); err == nil {
			return "", fmt.Errorf("ffmpeg: output already exists: %s", output)
		}
	}

	cover := cfg.Cover
	if cover == "" {
		extracted, err := ExtractCover(input, "")
		if err != nil {
			return "", err
		}
		if extracted == "" {
			return "", fmt.Errorf("ffmpeg: no cover art in %s, provide a cover image", input)
		}
		cover = extracted
		defer os.Remove(extracted)
	} else if _, err := os.Stat(cover); err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't find cover: %w", err)
	}

	res := cfg.resolution()
	scale := fmt.Sprintf("scale=%s:force_original_aspect_ratio=decrease,pad=%s:(ow-iw)/2:(oh-ih)/2", res, res)
	args := []string{
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", cfg.framerate()),
		"-i", cover,
		"-i", input,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-movflags", "+faststart",
		"-vf", scale,
	}
	if cfg.Overwrite {
		args = append(args, "-y")
	}
	args = append(args, output)

	cmd := exec.CommandContext(ctx, BinPath, args...)
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ffmpeg: couldn't convert to video: %w: %s", err, msg)
	}
	return output, nil
}

// ExtractCover writes the front cover embedded in the MP3 tag to output.
// With an empty output a temporary file is created. Returns an empty
// path when the tag has no picture.
func ExtractCover(input, output string) (string, error) {
	tag, err := id3v2.Open(input, id3v2.Options{Parse: true})
	if err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't open tag: %w", err)
	}
	defer tag.Close()

	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(frames) == 0 {
		return "", nil
	}
	pic, ok := frames[0].(id3v2.PictureFrame)
	if !ok {
		return "", nil
	}
	if output == "" {
		ext := ".jpg"
		switch pic.MimeType {
		case "image/png":
			ext = ".png"
		case "image/gif":
			ext = ".gif"
		}
		f, err := os.CreateTemp("", "cover-*"+ext)
		if err != nil {
			return "", fmt.Errorf("ffmpeg: couldn't create temporary cover: %w", err)
		}
		output = f.Name()
		_ = f.Close()
	}
	if err := os.WriteFile(output, pic.Picture, 0644); err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't write cover: %w", err)
	}
	return output, nil
}

// Converted pairs an input MP3 with its rendered MP4.
type Converted struct {
	Input  string
	Output string
}

// Directory converts every MP3 in dir. Per-file failures are skipped so
// one broken file doesn't abort the rest.
func Directory(ctx context.Context, dir, outDir string, cfg *VideoConfig) ([]Converted, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: couldn't list %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("ffmpeg: no mp3 files in %s", dir)
	}
	if outDir == "" {
		outDir = dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("ffmpeg: couldn't create %s: %w", outDir, err)
	}

	var converted []Converted
	var errs []error
	for _, input := range matches {
		name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".mp4"
		output, err := ToVideo(ctx, input, filepath.Join(outDir, name), cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		converted = append(converted, Converted{Input: input, Output: output})
	}
	if len(converted) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("ffmpeg: all conversions failed: %v", errs[0])
	}
	return converted, nil
}
