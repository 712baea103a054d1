// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Session    SessionConfig    `yaml:"session"`
	AssetCache AssetCacheConfig `yaml:"asset_cache"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains gateway HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// BackendConfig contains the PaperSynth processing backend connection.
// APIToken is the static shared service secret sent as a bearer credential
// on every backend request. It is not a user session token.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIToken    string        `yaml:"api_token"`
	Timeout     time.Duration `yaml:"timeout"`       // covers the slowest AI job
	MaxUploadMB int64         `yaml:"max_upload_mb"` // validation ceiling, mirrors the backend's
}

// SessionConfig contains the gateway's own login sessions. Secret signs the
// per-user JWT; it must never be confused with Backend.APIToken.
type SessionConfig struct {
	Secret   string        `yaml:"secret"`
	Password string        `yaml:"password"` // shared login passphrase for the UI
	TTL      time.Duration `yaml:"ttl"`
}

// AssetCacheConfig selects the store for downloaded artifacts.
type AssetCacheConfig struct {
	Type    string `yaml:"type"` // "memory" (default), "filesystem", or "s3"
	BaseDir string `yaml:"base_dir"`

	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3Endpoint  string `yaml:"s3_endpoint"` // for MinIO and other S3-compatible stores
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

// HistoryConfig controls the sqlite processing-history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// Environment variables override file config, matching the backend's own
// env-driven setup.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERSYNTH_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("PAPERSYNTH_API_TOKEN"); v != "" {
		cfg.Backend.APIToken = v
	}
	if v := os.Getenv("PAPERSYNTH_SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("PAPERSYNTH_SESSION_PASSWORD"); v != "" {
		cfg.Session.Password = v
	}
	if v := os.Getenv("PAPERSYNTH_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
		cfg.History.Enabled = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 6 * time.Minute
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 5 * time.Minute
	}
	if cfg.Backend.MaxUploadMB == 0 {
		cfg.Backend.MaxUploadMB = 10
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 12 * time.Hour
	}
	if cfg.AssetCache.Type == "" {
		cfg.AssetCache.Type = "memory"
	}
	if cfg.AssetCache.BaseDir == "" {
		cfg.AssetCache.BaseDir = "asset_cache"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "papersynth_history.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
