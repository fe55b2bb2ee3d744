// Package config loads and persists the per-project .codegraph/config.json
// file that governs what sync indexes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the project-relative directory holding config and the
	// database file.
	DirName        = ".codegraph"
	configFileName = "config.json"
	// DefaultMaxFileSize is the per-file size ceiling applied during
	// enumeration when MaxFileSize is unset.
	DefaultMaxFileSize = 1 << 20 // 1 MiB
)

// Config is the persisted shape of .codegraph/config.json.
type Config struct {
	Version          int      `json:"version"`
	RootDir          string   `json:"root_dir"`
	Include          []string `json:"include,omitempty"`
	Exclude          []string `json:"exclude,omitempty"`
	MaxFileSize      int64    `json:"max_file_size,omitempty"`
	ExtractDocstrings bool    `json:"extract_docstrings"`
	TrackCallSites   bool     `json:"track_call_sites"`
	EnableEmbeddings bool     `json:"enable_embeddings"`
}

// Default returns the configuration created by `codegraph init`.
func Default(rootDir string) *Config {
	return &Config{
		Version:           1,
		RootDir:           rootDir,
		Include:           []string{"**/*.rs", "**/*.go", "**/*.java"},
		Exclude:           []string{"**/node_modules/**", "**/.git/**", "**/target/**", "**/vendor/**"},
		MaxFileSize:       DefaultMaxFileSize,
		ExtractDocstrings: true,
		TrackCallSites:    true,
		EnableEmbeddings:  false,
	}
}

// Dir returns the .codegraph directory path for a project rooted at dir.
func Dir(dir string) string {
	return filepath.Join(dir, DirName)
}

func path(dir string) string {
	return filepath.Join(Dir(dir), configFileName)
}

// Load reads .codegraph/config.json from dir. A missing file is returned
// as the underlying os error, which callers can detect with os.IsNotExist
// (or avoid by calling Default and Save first).
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(path(dir))
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path(dir), err)
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &cfg, nil
}

// Save writes cfg to .codegraph/config.json atomically: it writes to a
// temp file in the same directory and renames over the target, so a
// concurrent reader never observes a partially written config.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", Dir(dir), err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	target := path(dir)
	tmp, err := os.CreateTemp(Dir(dir), configFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename config into place: %w", err)
	}
	return nil
}

// DatabasePath returns the path to the project's SQLite database file.
func DatabasePath(dir string) string {
	return filepath.Join(Dir(dir), "codegraph.db")
}
