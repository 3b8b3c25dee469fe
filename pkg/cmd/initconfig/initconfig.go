package initconfig

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Config holds the settings to create a starter config file.
type Config struct {
	Path      string
	Overwrite bool
}

const sample = `# suno-cli configuration file
# Pass it to any command with -config, or keep it at ~/.suno-cli/config.yaml
# Every value can also be set as a flag or as a SUNO_CLI_* environment variable

# Model version
# Options: V5, V4_5PLUS, V4_5ALL, V4_5, V4
model: V4_5ALL

# Vocal gender
# Options: male, female
gender: male

# Suno api key
# Uncomment it here or export SUNO_CLI_API_KEY instead
# api-key: your-api-key

# Output folder for downloaded songs
# output: ~/Music/generated

# Artist and album tags to write
# artist: Suno AI
# album: My Album

# Callback url sent with generation requests
# callback-url: https://example.com/callback

# Polling settings
# poll-interval: 10s
# max-wait: 10m

# Task journal
# db-type: sqlite
# db-conn: suno-cli.db
`

// Run writes a commented starter config file.
func Run(ctx context.Context, cfg *Config) error {
	path := cfg.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("initconfig: couldn't resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".suno-cli", "config.yaml")
	}
	if _, err := os.Stat(path); err == nil && !cfg.Overwrite {
		return fmt.Errorf("initconfig: %s already exists, use -overwrite to replace it", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("initconfig: couldn't create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		return fmt.Errorf("initconfig: couldn't write config file: %w", err)
	}
	log.Printf("initconfig: created %s, edit it to customize your settings\n", path)
	return nil
}
