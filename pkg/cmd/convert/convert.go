package convert

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/slauger/suno-cli/pkg/ffmpeg"
)

type Config struct {
	Debug bool

	Input      string
	Output     string
	Cover      string
	Resolution string
	Framerate  int
	Overwrite  bool
}

// Run converts an mp3, or a directory of them, into still-image videos.
func Run(ctx context.Context, cfg *Config) error {
	log.Printf("convert: started\n")
	defer log.Printf("convert: ended\n")

	if cfg.Input == "" {
		return errors.New("convert: input is empty")
	}
	if !ffmpeg.Installed(ctx) {
		return errors.New("convert: ffmpeg not found in PATH")
	}
	vcfg := &ffmpeg.VideoConfig{
		Cover:      cfg.Cover,
		Resolution: cfg.Resolution,
		Framerate:  cfg.Framerate,
		Overwrite:  cfg.Overwrite,
	}

	info, err := os.Stat(cfg.Input)
	if err != nil {
		return err
	}
	if info.IsDir() {
		results, err := ffmpeg.Directory(ctx, cfg.Input, cfg.Output, vcfg)
		if err != nil {
			return err
		}
		for _, r := range results {
			log.Println("convert:", r.Output)
		}
		return nil
	}
	out, err := ffmpeg.ToVideo(ctx, cfg.Input, cfg.Output, vcfg)
	if err != nil {
		return err
	}
	log.Println("convert:", out)
	return nil
}
