// Package config provides configuration loading for repoprintd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inkweldlabs/repoprint/internal/logging"
)

// Config is the full repoprintd configuration.
type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Paths   PathsConfig    `koanf:"paths"`
	Jobs    JobsConfig     `koanf:"jobs"`
	Janitor JanitorConfig  `koanf:"janitor"`
	GitHub  GitHubConfig   `koanf:"github"`
	Logging logging.Config `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxUploadBytes caps the request body on archive uploads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// RatePerSecond and RateBurst shape the per-IP limiter on
	// submission routes.
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`
}

// PathsConfig holds the on-disk working directories.
type PathsConfig struct {
	// ScratchDir receives uploaded archives and per-job extraction trees.
	ScratchDir string `koanf:"scratch_dir"`
	// OutputDir receives finished reports and is served statically.
	OutputDir string `koanf:"output_dir"`
}

// JobsConfig holds conversion pipeline settings.
type JobsConfig struct {
	// Retention is how long terminal job records stay readable.
	Retention time.Duration `koanf:"retention"`
	// BatchSize is the number of files rendered between progress
	// updates and yield points.
	BatchSize int `koanf:"batch_size"`
	// MaxFileBytes caps the bytes read and rendered per file.
	MaxFileBytes int64 `koanf:"max_file_bytes"`
}

// JanitorConfig holds the disk sweep settings.
type JanitorConfig struct {
	Interval time.Duration `koanf:"interval"`
	// MaxAge is the age past which scratch and output entries are removed.
	MaxAge time.Duration `koanf:"max_age"`
}

// GitHubConfig holds remote fetch settings.
type GitHubConfig struct {
	// Token authenticates archive downloads. Optional; public
	// repositories work without it.
	Token Secret `koanf:"token"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8640
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Server.RatePerSecond == 0 {
		cfg.Server.RatePerSecond = 1
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 10
	}

	if cfg.Paths.ScratchDir == "" {
		cfg.Paths.ScratchDir = filepath.Join(os.TempDir(), "repoprint", "scratch")
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = filepath.Join(os.TempDir(), "repoprint", "reports")
	}

	if cfg.Jobs.Retention == 0 {
		cfg.Jobs.Retention = 10 * time.Minute
	}
	if cfg.Jobs.BatchSize == 0 {
		cfg.Jobs.BatchSize = 5
	}
	if cfg.Jobs.MaxFileBytes == 0 {
		cfg.Jobs.MaxFileBytes = 100_000
	}

	if cfg.Janitor.Interval == 0 {
		cfg.Janitor.Interval = 30 * time.Minute
	}
	if cfg.Janitor.MaxAge == 0 {
		cfg.Janitor.MaxAge = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.Paths.ScratchDir == "" || c.Paths.OutputDir == "" {
		return fmt.Errorf("scratch_dir and output_dir must be set")
	}
	if c.Paths.ScratchDir == c.Paths.OutputDir {
		return fmt.Errorf("scratch_dir and output_dir must differ")
	}
	if c.Jobs.Retention < time.Second {
		return fmt.Errorf("jobs retention %s too short", c.Jobs.Retention)
	}
	if c.Jobs.BatchSize < 1 {
		return fmt.Errorf("jobs batch_size must be positive")
	}
	if c.Jobs.MaxFileBytes < 1 {
		return fmt.Errorf("jobs max_file_bytes must be positive")
	}
	if c.Janitor.Interval < time.Second {
		return fmt.Errorf("janitor interval %s too short", c.Janitor.Interval)
	}
	if c.Janitor.MaxAge < time.Second {
		return fmt.Errorf("janitor max_age %s too short", c.Janitor.MaxAge)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}
