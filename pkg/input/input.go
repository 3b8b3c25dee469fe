package input

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Resolver loads a field that may be a literal string, a local file path or
// an http(s) URL into plain text content.
type Resolver struct {
	client *http.Client
}

func NewResolver(client *http.Client) *Resolver {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &Resolver{client: client}
}

// Resolve returns the text content behind source. URLs are fetched, existing
// file paths are read, anything else is returned as-is.
func (r *Resolver) Resolve(ctx context.Context, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return r.fetch(ctx, source)
	}
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		b, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("input: couldn't read file %q: %w", source, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return source, nil
}

func (r *Resolver) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("input: couldn't create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("input: couldn't fetch %q: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("input: %q returned status %d", u, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("input: couldn't read response from %q: %w", u, err)
	}
	return strings.TrimSpace(string(b)), nil
}
