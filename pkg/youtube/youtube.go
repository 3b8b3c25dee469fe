package youtube

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// MusicCategory is the YouTube category id for music videos.
const MusicCategory = "10"

type Client struct {
	service *youtube.Service
	debug   bool
}

// New builds a client from an authorized HTTP client, see Authenticate.
func New(ctx context.Context, httpClient *http.Client, debug bool) (*Client, error) {
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't create service: %w", err)
	}
	return &Client{
		service: service,
		debug:   debug,
	}, nil
}

// Video is an uploaded video.
type Video struct {
	ID      string
	URL     string
	Title   string
	Privacy string
}

// UploadConfig describes one upload.
type UploadConfig struct {
	File              string
	Title             string
	Description       string
	Tags              []string
	Category          string
	Privacy           string
	NotifySubscribers bool
}

var videoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".flv": true,
	".wmv": true,
}

func (c *UploadConfig) validate() error {
	if _, err := os.Stat(c.File); err != nil {
		return fmt.Errorf("youtube: couldn't find video file: %w", err)
	}
	if !videoExts[strings.ToLower(filepath.Ext(c.File))] {
		return fmt.Errorf("youtube: unsupported video format: %s", filepath.Ext(c.File))
	}
	if c.Title == "" {
		return fmt.Errorf("youtube: title is empty")
	}
	if len(c.Title) > 100 {
		return fmt.Errorf("youtube: title too long (max 100 chars): %d", len(c.Title))
	}
	if len(c.Description) > 5000 {
		return fmt.Errorf("youtube: description too long (max 5000 chars): %d", len(c.Description))
	}
	switch c.Privacy {
	case "", "public", "private", "unlisted":
	default:
		return fmt.Errorf("youtube: invalid privacy setting: %s", c.Privacy)
	}
	return nil
}

// Upload sends the video file with resumable chunks and returns the
// published video. Privacy defaults to private.
func (c *Client) Upload(ctx context.Context, cfg *UploadConfig) (*Video, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	privacy := cfg.Privacy
	if privacy == "" {
		privacy = "private"
	}
	category := cfg.Category
	if category == "" {
		category = MusicCategory
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       cfg.Title,
			Description: cfg.Description,
			Tags:        cfg.Tags,
			CategoryId:  category,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	f, err := os.Open(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't open video file: %w", err)
	}
	defer f.Close()

	notify := cfg.NotifySubscribers && privacy == "public"
	call := c.service.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(notify).
		Media(f, googleapi.ChunkSize(1024*1024)).
		Context(ctx)
	if c.debug {
		call = call.ProgressUpdater(func(current, total int64) {
			if total > 0 {
				log.Printf("youtube: upload progress %d%%\n", current*100/total)
			}
		})
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: upload failed: %w", err)
	}
	return &Video{
		ID:      resp.Id,
		URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", resp.Id),
		Title:   resp.Snippet.Title,
		Privacy: resp.Status.PrivacyStatus,
	}, nil
}

// Channel returns the title of the authenticated user's channel. Used by
// the auth setup to verify API access.
func (c *Client) Channel(ctx context.Context) (string, error) {
	resp, err := c.service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube: couldn't list channels: %w", err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("youtube: no channel found for this account")
	}
	return resp.Items[0].Snippet.Title, nil
}
