package youtube

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestUploadConfigValidate(t *testing.T) {
	dir := t.TempDir()
	mp4 := filepath.Join(dir, "track.mp4")
	if err := os.WriteFile(mp4, []byte("video"), 0644); err != nil {
		t.Fatalf("couldn't write file: %v", err)
	}
	txt := filepath.Join(dir, "track.txt")
	if err := os.WriteFile(txt, []byte("text"), 0644); err != nil {
		t.Fatalf("couldn't write file: %v", err)
	}

	tests := []struct {
		name    string
		cfg     UploadConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  UploadConfig{File: mp4, Title: "Neon Nights", Privacy: "private"},
		},
		{
			name:    "missing file",
			cfg:     UploadConfig{File: filepath.Join(dir, "missing.mp4"), Title: "t"},
			wantErr: true,
		},
		{
			name:    "unsupported format",
			cfg:     UploadConfig{File: txt, Title: "t"},
			wantErr: true,
		},
		{
			name:    "empty title",
			cfg:     UploadConfig{File: mp4},
			wantErr: true,
		},
		{
			name:    "title too long",
			cfg:     UploadConfig{File: mp4, Title: strings.Repeat("a", 101)},
			wantErr: true,
		},
		{
			name:    "description too long",
			cfg:     UploadConfig{File: mp4, Title: "t", Description: strings.Repeat("a", 5001)},
			wantErr: true,
		},
		{
			name:    "invalid privacy",
			cfg:     UploadConfig{File: mp4, Title: "t", Privacy: "secret"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
	}
	if err := saveToken(path, token); err != nil {
		t.Fatalf("saveToken() error: %v", err)
	}
	got, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken() error: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" {
		t.Errorf("loadToken() = %+v; want saved token", got)
	}
}

func TestLoadTokenMissing(t *testing.T) {
	if _, err := loadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("loadToken() error = nil; want open error")
	}
}
