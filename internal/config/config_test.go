package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HIERCHUNK_CONFIG", "")
	t.Setenv("WORKER_COUNT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 2000, cfg.Chunking.ParentChunkSize)
	assert.Equal(t, 350, cfg.Chunking.ChildChunkSize)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateServer(), "api key is required to serve")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierchunk.yaml")
	yml := `
port: "9000"
worker_count: 2
job_ttl: 30m
cache_backend: sqlite
cache_path: /tmp/cache.db
chunking:
  parent_chunk_size: 1500
  child_chunk_size: 300
  table_policy: rows
  header_levels:
    - marker: "#"
      name: Title
    - marker: "##"
      name: Section
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("HIERCHUNK_CONFIG", path)
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("CHILD_CHUNK_OVERLAP", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 8, cfg.WorkerCount, "env wins over file")
	assert.Equal(t, 30*time.Minute, cfg.JobTTL)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, 1500, cfg.Chunking.ParentChunkSize)
	assert.Equal(t, 200, cfg.Chunking.ParentChunkOverlap, "unset keys keep defaults")
	assert.Equal(t, 300, cfg.Chunking.ChildChunkSize)
	assert.Equal(t, 25, cfg.Chunking.ChildChunkOverlap)
	assert.Equal(t, "rows", cfg.Chunking.TablePolicy)
	require.Len(t, cfg.Chunking.HeaderLevels, 2)
	assert.Equal(t, "Section", cfg.Chunking.HeaderLevels[1].Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o644))
	t.Setenv("HIERCHUNK_CONFIG", path)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("HIERCHUNK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_ZeroFallsBack(t *testing.T) {
	t.Setenv("HIERCHUNK_CONFIG", "")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("MAX_QUEUE_SIZE", "-3")
	t.Setenv("JOB_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxQueueSize)
	assert.Equal(t, time.Hour, cfg.JobTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap too large", func(c *Config) { c.Chunking.ChildChunkOverlap = c.Chunking.ChildChunkSize }},
		{"unknown policy", func(c *Config) { c.Chunking.TablePolicy = "shred" }},
		{"unknown cache", func(c *Config) { c.CacheBackend = "redis" }},
		{"cache without path", func(c *Config) { c.CachePath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.APIKey = "k"
	assert.NoError(t, cfg.ValidateServer())
}
