// Package config defines the SDK's on-disk layout and settings.
package config

import (
	"os"
	"path/filepath"
)

// Paths contains all filesystem locations used by the SDK.
type Paths struct {
	Home      string // SDK home directory (~/.edgekit)
	Models    string // Downloaded model files
	Cache     string // Scratch cache directory
	Logs      string // Logs directory
	Spool     string // Telemetry spool database path
	Bootstrap string // CLI bootstrap file path
}

// GetPaths returns the SDK directory layout.
func GetPaths() Paths {
	home := GetEdgekitHome()
	return Paths{
		Home:      home,
		Models:    filepath.Join(home, "models"),
		Cache:     filepath.Join(home, "cache"),
		Logs:      filepath.Join(home, "logs"),
		Spool:     filepath.Join(home, "telemetry.db"),
		Bootstrap: filepath.Join(home, "bootstrap.json"),
	}
}

// GetEdgekitHome returns the SDK home directory (~/.edgekit).
func GetEdgekitHome() string {
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".edgekit")
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDirs creates the SDK directory structure if it does not exist.
func EnsureDirs() (Paths, error) {
	paths := GetPaths()

	dirs := []string{
		paths.Home,
		paths.Models,
		paths.Cache,
		paths.Logs,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}
	return paths, nil
}
