// Package config loads the scispark.yaml startup configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "scispark.yaml"
	homeConfigDir     = ".scispark"
	homeConfigName    = "config.yaml"
)

// Config is the declarative startup configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Arxiv    ArxivConfig    `yaml:"arxiv"`
	Cache    CacheConfig    `yaml:"cache"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Otel     OtelConfig     `yaml:"otel"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	MaxBody    int64  `yaml:"max_body"`
}

// ProviderConfig selects the LLM provider backing the research assistant.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ArxivConfig controls the paper-search collaborator.
type ArxivConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig enables the SQLite search cache when Path is set.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// TasksConfig controls background execution and retention of finished
// tasks. A zero WorkerLimit means unbounded concurrency; an empty
// RetentionSchedule disables pruning.
type TasksConfig struct {
	WorkerLimit       int           `yaml:"worker_limit"`
	RetentionSchedule string        `yaml:"retention_schedule"`
	RetentionAge      time.Duration `yaml:"retention_age"`
}

// OtelConfig enables trace export when the endpoint is set.
type OtelConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			CORSOrigin: "*",
			MaxBody:    1 << 20,
		},
		Provider: ProviderConfig{
			Name: "openai",
		},
	}
}

// DiscoverPath resolves the config location with first-match semantics:
// explicit path, then ./scispark.yaml, then ~/.scispark/config.yaml.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config candidate %q: %w", candidate, err)
		}
		// An explicit path that does not exist is an error, not a fallthrough.
		if i == 0 && strings.TrimSpace(explicitPath) != "" {
			return "", false, fmt.Errorf("config file %q not found", candidate)
		}
	}
	return "", false, nil
}

// Load reads and validates the config file, layering it over defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Tasks.WorkerLimit < 0 {
		return errors.New("tasks.worker_limit must not be negative")
	}
	if c.Tasks.RetentionSchedule != "" && c.Tasks.RetentionAge <= 0 {
		return errors.New("tasks.retention_age is required when a retention schedule is set")
	}
	return nil
}
