// Package bootstrap stores the CLI-facing settings file so tools can
// configure the SDK without linking against it.
package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edgekit-ai/edgekit/internal/config"
)

// Config stores telemetry collector details and device identity for CLI and
// host applications.
type Config struct {
	CollectorURL string       `json:"collector_url,omitempty"`
	APIKey       string       `json:"api_key,omitempty"`
	DeviceID     string       `json:"device_id,omitempty"`
	Telemetry    bool         `json:"telemetry_enabled"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Metadata     *MetaSection `json:"meta,omitempty"`
}

// MetaSection allows callers to store additional information (e.g. name).
type MetaSection struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Path returns the absolute filesystem location of the bootstrap file.
func Path() string {
	return config.GetPaths().Bootstrap
}

// Load returns the stored bootstrap configuration. If the file does not
// exist, (nil, nil) is returned.
func Load() (*Config, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("bootstrap: read file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: decode file: %w", err)
	}
	return &cfg, nil
}

// Save persists the given bootstrap configuration to disk, creating
// intermediate directories as needed.
func Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("bootstrap: config is nil")
	}

	p := Path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("bootstrap: create directory: %w", err)
	}

	cfg.UpdatedAt = time.Now().UTC()

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("bootstrap: encode config: %w", err)
	}
	if err := os.WriteFile(p, encoded, 0o600); err != nil {
		return fmt.Errorf("bootstrap: write file: %w", err)
	}
	return nil
}

// Remove deletes the bootstrap configuration. It is not considered an error
// when the file does not exist.
func Remove() error {
	if err := os.Remove(Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("bootstrap: remove file: %w", err)
	}
	return nil
}
