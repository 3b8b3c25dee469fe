package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const uploadScope = "https://www.googleapis.com/auth/youtube.upload"

// DefaultCredentialsDir returns the directory where client secrets and
// cached tokens live.
func DefaultCredentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".suno-cli", "youtube")
}

// Authenticate returns an HTTP client authorized for uploads. A cached
// token is reused when present, otherwise the OAuth consent flow runs in
// the browser and the resulting token is cached at tokenFile.
func Authenticate(ctx context.Context, clientSecrets, tokenFile string, debug bool) (*http.Client, error) {
	if clientSecrets == "" {
		clientSecrets = filepath.Join(DefaultCredentialsDir(), "client_secrets.json")
	}
	if tokenFile == "" {
		tokenFile = filepath.Join(DefaultCredentialsDir(), "token.json")
	}

	b, err := os.ReadFile(clientSecrets)
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't read client secrets %s: %w", clientSecrets, err)
	}
	cfg, err := google.ConfigFromJSON(b, uploadScope)
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't parse client secrets: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		if debug {
			log.Printf("youtube: no cached token: %v\n", err)
		}
		token, err = authorize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, token); err != nil {
			return nil, err
		}
	}
	return cfg.Client(ctx, token), nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("youtube: couldn't decode token %s: %w", path, err)
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("youtube: couldn't create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("youtube: couldn't create token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("youtube: couldn't encode token: %w", err)
	}
	return nil
}

// authorize runs the installed application flow: a loopback server
// receives the authorization code after the user grants consent in the
// browser.
func authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't listen for oauth redirect: %w", err)
	}
	defer listener.Close()
	cfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

	codeC := make(chan string, 1)
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authorization received, you can close this window.")
			codeC <- code
		}),
	}
	go func() {
		_ = server.Serve(listener)
	}()
	defer server.Close()

	authURL := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	log.Printf("youtube: opening browser for authorization: %s", authURL)
	if err := browser.OpenURL(authURL); err != nil {
		log.Printf("youtube: couldn't open browser, visit the URL manually: %v", err)
	}

	var code string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("youtube: authorization cancelled: %w", ctx.Err())
	case code = <-codeC:
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't exchange authorization code: %w", err)
	}
	return token, nil
}
