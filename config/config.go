package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config carries every knob the pipeline needs. It is constructed once by
// the CLI layer and passed down explicitly; nothing in the pipeline reads
// ambient globals.
type Config struct {
	// BaseURL resolves relative reader links discovered on album pages.
	BaseURL string `json:"base_url"`

	// DownloadDir is the root under which each album gets its own
	// subdirectory named after the album ID.
	DownloadDir string `json:"download_dir"`

	// Delay between page visits (listing pages, album pages).
	Delay time.Duration `json:"delay"`

	// DownloadDelay is the politeness pause between image fetches.
	DownloadDelay time.Duration `json:"download_delay"`

	// DownloadTimeout bounds a single HTTP request.
	DownloadTimeout time.Duration `json:"download_timeout"`

	// MaxRetries is the number of additional per-album attempts after the
	// first one fails or comes back incomplete.
	MaxRetries int `json:"max_retries"`

	// RetryBaseDelay scales the linear backoff: attempt N waits N*base.
	RetryBaseDelay time.Duration `json:"retry_base_delay"`

	CreateZip   bool `json:"create_zip"`
	ConvertJPEG bool `json:"convert_jpeg"`
	Verbose     bool `json:"verbose"`
}

// Default returns the stock configuration. The values mirror what the tool
// shipped with historically so existing download trees keep working.
func Default() Config {
	return Config{
		DownloadDir:     "./downloaded_images",
		Delay:           1 * time.Second,
		DownloadDelay:   500 * time.Millisecond,
		DownloadTimeout: 30 * time.Second,
		MaxRetries:      2,
		RetryBaseDelay:  5 * time.Second,
	}
}

// Load reads ~/.config/gazo/config.json on top of the defaults. A missing
// file is not an error; the file is created with defaults on first run so
// users have something to edit.
func Load() Config {
	cfg := Default()

	path, err := verifyConfigFile(cfg)
	if err != nil {
		log.Printf("[Config] error verifying config file: %v", err)
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[Config] error reading config file: %v", err)
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("[Config] error unmarshalling config: %v", err)
	}

	return cfg
}

// Save writes the configuration to ~/.config/gazo/config.json.
func Save(cfg Config) error {
	dir, err := verifyConfigDirectory()
	if err != nil {
		return fmt.Errorf("error verifying config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// check config directory exists or create it
func verifyConfigDirectory() (string, error) {
	dir, err := ExpandPath("~/.config/gazo")
	if err != nil {
		return "", fmt.Errorf("cannot verify local configuration directory: %w", err)
	}

	_, err = os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("error checking directory %s: %w", dir, err)
	}

	return dir, nil
}

// check config file exists or create it with defaults
func verifyConfigFile(defaults Config) (string, error) {
	dir, err := verifyConfigDirectory()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "config.json")

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		log.Printf("[Config] config file not found, creating template at '%s'", path)
		if saveErr := Save(defaults); saveErr != nil {
			return "", fmt.Errorf("error creating config file: %w", saveErr)
		}
	} else if err != nil {
		return "", fmt.Errorf("error checking file existence: %w", err)
	}

	return path, nil
}

// ExpandPath expands ~ to the user's home directory, or returns the path as-is.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
