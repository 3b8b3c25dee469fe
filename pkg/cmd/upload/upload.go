package upload

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/slauger/suno-cli/pkg/youtube"
)

type Config struct {
	Debug bool

	ClientSecrets string
	TokenFile     string
	Auth          bool

	File              string
	Title             string
	Description       string
	Tags              []string
	Category          string
	Privacy           string
	NotifySubscribers bool
}

// Run uploads a video to YouTube. With Auth set it only runs the OAuth
// flow and prints the authenticated channel, which is handy for priming
// the token cache on a headless box.
func Run(ctx context.Context, cfg *Config) error {
	log.Printf("upload: started\n")
	defer log.Printf("upload: ended\n")

	httpClient, err := youtube.Authenticate(ctx, cfg.ClientSecrets, cfg.TokenFile, cfg.Debug)
	if err != nil {
		return err
	}
	client, err := youtube.New(ctx, httpClient, cfg.Debug)
	if err != nil {
		return err
	}

	if cfg.Auth {
		channel, err := client.Channel(ctx)
		if err != nil {
			return err
		}
		log.Printf("upload: authenticated as %s\n", channel)
		return nil
	}

	if cfg.File == "" {
		return errors.New("upload: video file is empty")
	}
	title := cfg.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(cfg.File), filepath.Ext(cfg.File))
	}
	video, err := client.Upload(ctx, &youtube.UploadConfig{
		File:              cfg.File,
		Title:             title,
		Description:       cfg.Description,
		Tags:              cfg.Tags,
		Category:          cfg.Category,
		Privacy:           cfg.Privacy,
		NotifySubscribers: cfg.NotifySubscribers,
	})
	if err != nil {
		return err
	}
	log.Printf("upload: %s (%s)\n", video.URL, video.Privacy)
	return nil
}
