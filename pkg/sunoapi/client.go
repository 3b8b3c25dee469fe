package sunoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slauger/suno-cli/pkg/ratelimit"
	"github.com/slauger/suno-cli/pkg/song"
)

const defaultBase = "https://api.sunoapi.org/api/v1"

// The service requires a callback URL even when polling is used instead.
const defaultCallback = "https://example.com/callback"

// Client talks to the generation service. The API key is attached here;
// callers never handle credentials.
type Client struct {
	client      *http.Client
	debug       bool
	ratelimit   ratelimit.Lock
	key         string
	base        string
	callbackURL string
}

type Config struct {
	Key         string
	Base        string
	CallbackURL string
	Proxy       string
	Wait        time.Duration
	Debug       bool
	Client      *http.Client
}

func New(cfg *Config) (*Client, error) {
	if cfg.Key == "" {
		return nil, errors.New("sunoapi: api key is empty")
	}
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("sunoapi: invalid proxy URL: %w", err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	base := cfg.Base
	if base == "" {
		base = defaultBase
	}
	callback := cfg.CallbackURL
	if callback == "" {
		callback = defaultCallback
	}
	return &Client{
		client:      client,
		ratelimit:   ratelimit.New(wait),
		debug:       cfg.Debug,
		key:         cfg.Key,
		base:        strings.TrimSuffix(base, "/"),
		callbackURL: callback,
	}, nil
}

// Error is a definitive rejection from the service: an HTTP 4xx or a
// business error code in the response envelope.
type Error struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sunoapi: service rejected request (%d): %s", e.code(), e.Message)
}

// Rejection marks this error as a service-side rejection rather than a
// delivery failure.
func (e *Error) Rejection() string {
	return e.Message
}

func (e *Error) code() int {
	if e.Code != 0 {
		return e.Code
	}
	return e.StatusCode
}

type generateRequest struct {
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	VocalGender  string `json:"vocalGender,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	CallBackURL  string `json:"callBackUrl"`
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type taskData struct {
	TaskID string `json:"taskId"`
}

// Submit sends one generation request and returns the issued task id.
func (c *Client) Submit(ctx context.Context, req *song.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = song.DefaultModel
	}
	payload := &generateRequest{
		CustomMode:   req.CustomMode(),
		Instrumental: req.Instrumental,
		Prompt:       req.Prompt,
		Model:        model,
		VocalGender:  req.Gender,
		Duration:     req.Duration,
		CallBackURL:  c.callbackURL,
	}
	if req.CustomMode() {
		payload.Title = req.Title
		payload.Style = req.Style
	}
	var data taskData
	if err := c.do(ctx, "POST", "generate", payload, &data); err != nil {
		return "", fmt.Errorf("sunoapi: couldn't submit generation: %w", err)
	}
	if data.TaskID == "" {
		return "", errors.New("sunoapi: no task id in response")
	}
	return data.TaskID, nil
}

type recordInfo struct {
	TaskID   string `json:"taskId"`
	Status   string `json:"status"`
	Response struct {
		SunoData []sunoTrack `json:"sunoData"`
	} `json:"response"`
	ErrorMessage string `json:"errorMessage"`
}

type sunoTrack struct {
	ID             string  `json:"id"`
	AudioURL       string  `json:"audioUrl"`
	SourceAudioURL string  `json:"sourceAudioUrl"`
	StreamAudioURL string  `json:"streamAudioUrl"`
	ImageURL       string  `json:"imageUrl"`
	Title          string  `json:"title"`
	Tags           string  `json:"tags"`
	Duration       float64 `json:"duration"`
}

func (t *sunoTrack) audio() string {
	// Some responses only populate the source URL.
	if t.AudioURL != "" {
		return t.AudioURL
	}
	return t.SourceAudioURL
}

// Status performs one idempotent status query for the given task.
func (c *Client) Status(ctx context.Context, taskID string) (*song.StatusRecord, error) {
	path := fmt.Sprintf("generate/record-info?taskId=%s", url.QueryEscape(taskID))
	var info recordInfo
	if err := c.do(ctx, "GET", path, nil, &info); err != nil {
		return nil, fmt.Errorf("sunoapi: couldn't get status for %s: %w", taskID, err)
	}
	rec := &song.StatusRecord{
		State: info.Status,
		Error: info.ErrorMessage,
	}
	for _, t := range info.Response.SunoData {
		rec.Tracks = append(rec.Tracks, song.Track{
			ID:       t.ID,
			Title:    t.Title,
			AudioURL: t.audio(),
			ImageURL: t.ImageURL,
			Genre:    t.Tags,
			Duration: t.Duration,
		})
	}
	return rec, nil
}

type coverRequest struct {
	TaskID      string `json:"taskId"`
	CallBackURL string `json:"callBackUrl"`
}

// GenerateCover requests cover art for a finished music task. This costs
// extra credits and can only be called once per task.
func (c *Client) GenerateCover(ctx context.Context, musicTaskID string) (string, error) {
	payload := &coverRequest{
		TaskID:      musicTaskID,
		CallBackURL: c.callbackURL,
	}
	var data taskData
	if err := c.do(ctx, "POST", "generate/cover", payload, &data); err != nil {
		return "", fmt.Errorf("sunoapi: couldn't generate cover: %w", err)
	}
	if data.TaskID == "" {
		return "", errors.New("sunoapi: no cover task id in response")
	}
	return data.TaskID, nil
}

// Fetch streams an artifact URL into w.
func (c *Client) Fetch(ctx context.Context, u string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("sunoapi: couldn't create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sunoapi: couldn't fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sunoapi: fetching %s returned: %w", u, errStatusCode(resp.StatusCode))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("sunoapi: couldn't read %s: %w", u, err)
	}
	return nil
}

var backoff = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	maxAttempts := 3
	attempts := 0
	var err error
	for {
		if err != nil {
			c.log("sunoapi: retrying after: %v", err)
		}
		err = c.doAttempt(ctx, method, path, in, out)
		if err == nil {
			return nil
		}
		attempts++
		if attempts >= maxAttempts {
			return err
		}
		// Retry timeouts
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		// Retry transient server errors after waiting
		var errStatus errStatusCode
		if !errors.As(err, &errStatus) {
			return err
		}
		switch int(errStatus) {
		case http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusTooManyRequests, 520:
		default:
			return err
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		t := time.NewTimer(backoff[idx])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

type errStatusCode int

func (e errStatusCode) Error() string {
	return fmt.Sprintf("%d", e)
}

func (c *Client) doAttempt(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	c.log("sunoapi: do %s %s", method, path)

	u := fmt.Sprintf("%s/%s", c.base, path)
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("couldn't create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))

	unlock := c.ratelimit.Lock(ctx)
	defer unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("couldn't read response body: %w", err)
	}
	c.log("sunoapi: response %s %s %d %s", method, path, resp.StatusCode, string(respBody))

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &Error{StatusCode: resp.StatusCode, Message: errMessage(respBody, resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s returned: %w", method, u, errStatusCode(resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("couldn't unmarshal response body: %w", err)
	}
	// The envelope carries business errors with HTTP 200.
	if env.Code != 0 && env.Code != 200 {
		msg := env.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return &Error{StatusCode: resp.StatusCode, Code: env.Code, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("couldn't unmarshal response data (%T): %w", out, err)
		}
	}
	return nil
}

func errMessage(body []byte, status int) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Msg != "" {
		return env.Msg
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 100 {
		msg = msg[:100] + "..."
	}
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return msg
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}
