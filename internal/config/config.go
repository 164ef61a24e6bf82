// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file, the file wins over
// defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Index service; indexing is skipped when IndexURL is empty.
	IndexURL    string `yaml:"index_url"`
	IndexAPIKey string `yaml:"index_api_key"`

	// Conversion cache
	CacheBackend string `yaml:"cache_backend"` // file, sqlite or none
	CachePath    string `yaml:"cache_path"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL      time.Duration `yaml:"job_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	Chunking hierarchy.Config `yaml:"chunking"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:                 "8090",
		LogLevel:             "info",
		CacheBackend:         "file",
		CachePath:            "cache",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               1 * time.Hour,
		StatsWindow:          1 * time.Hour,
		PDFFallbackPdftotext: true,
		Chunking:             hierarchy.DefaultConfig(),
	}
}

// Load reads HIERCHUNK_CONFIG when set, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("HIERCHUNK_CONFIG"); path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.fillZero()
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults. Keys not present in the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)

	c.APIKey = envOr("HIERCHUNK_API_KEY", c.APIKey)

	c.IndexURL = envOr("INDEX_URL", c.IndexURL)
	c.IndexAPIKey = envOr("INDEX_API_KEY", c.IndexAPIKey)

	c.CacheBackend = envOr("CACHE_BACKEND", c.CacheBackend)
	c.CachePath = envOr("CACHE_PATH", c.CachePath)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	ch := &c.Chunking
	ch.ParentChunkSize = envInt("PARENT_CHUNK_SIZE", ch.ParentChunkSize)
	ch.ParentChunkOverlap = envInt("PARENT_CHUNK_OVERLAP", ch.ParentChunkOverlap)
	ch.ChildChunkSize = envInt("CHILD_CHUNK_SIZE", ch.ChildChunkSize)
	ch.ChildChunkOverlap = envInt("CHILD_CHUNK_OVERLAP", ch.ChildChunkOverlap)
	ch.KeepTablesTogether = envBool("KEEP_TABLES_TOGETHER", ch.KeepTablesTogether)
	ch.NormalizeOutput = envBool("NORMALIZE_OUTPUT", ch.NormalizeOutput)
	ch.TablePolicy = envOr("TABLE_POLICY", ch.TablePolicy)
}

// fillZero restores defaults for pool and limit settings that make no sense
// at zero or below.
func (c *Config) fillZero() {
	d := Default()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	switch strings.ToLower(c.CacheBackend) {
	case "", "none", "file", "sqlite":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheBackend != "" && c.CacheBackend != "none" && c.CachePath == "" {
		return errors.New("CACHE_PATH is required when caching is enabled")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateServer additionally requires the API key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return errors.New("HIERCHUNK_API_KEY is required")
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return l, nil
}

// NewLogger builds the JSON logger used by every command.
func (c Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
