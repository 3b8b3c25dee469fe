package input

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "lyrics.txt")
	if err := os.WriteFile(file, []byte("verse one\n"), 0644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote style\n"))
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"literal", "pop, upbeat", "pop, upbeat"},
		{"file", file, "verse one"},
		{"url", srv.URL, "remote style"},
		{"missing file is literal", filepath.Join(dir, "nope.txt"), filepath.Join(dir, "nope.txt")},
	}
	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.source)
			if err != nil {
				t.Fatalf("Resolve(%q) err = %v; want nil", tt.source, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %q; want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestResolveBadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewResolver(nil)
	if _, err := r.Resolve(context.Background(), srv.URL); err == nil {
		t.Fatal("Resolve() err = nil; want error")
	}
}
