package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "hnsw", cfg.Storage.Backend)
	assert.Equal(t, "servibot_docs", cfg.Storage.Collection)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 100, cfg.Chunking.MinChunkLen)
	assert.Equal(t, "auto", cfg.Chunking.Strategy)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
	assert.Equal(t, int64(10*1024*1024), cfg.Ingest.MaxUploadSize)
	assert.Equal(t, 3, cfg.Ingest.RetryMax)
	assert.Equal(t, "30s", cfg.Ingest.RetryInterval)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Given a directory with no config file
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	// When loading
	cfg, err := Load(dir)

	// Then defaults apply
	require.NoError(t, err)
	assert.Equal(t, "hnsw", cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
}

func TestLoad_ProjectConfigMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	content := `
storage:
  backend: memory
  collection: test_docs
chunking:
  chunk_size: 500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "test_docs", cfg.Storage.Collection)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)

	// Untouched values keep their defaults
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Search.TopK)
}

func TestLoad_HiddenProjectConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	content := "search:\n  top_k: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docindex.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Search.TopK)
}

func TestLoad_UserConfigThenProjectOverrides(t *testing.T) {
	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdg)

	// Given a user config setting both collection and top_k
	userDir := filepath.Join(xdg, "docindex")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	userContent := "storage:\n  collection: user_docs\nsearch:\n  top_k: 9\n"
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(userContent), 0o644))

	// And a project config overriding only the collection
	projContent := "storage:\n  collection: project_docs\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte(projContent), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Project wins where it speaks; user config fills the rest
	assert.Equal(t, "project_docs", cfg.Storage.Collection)
	assert.Equal(t, 9, cfg.Search.TopK)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("DOCINDEX_BACKEND", "memory")
	t.Setenv("DOCINDEX_COLLECTION", "env_docs")
	t.Setenv("DOCINDEX_CHUNK_SIZE", "750")
	t.Setenv("INDEX_RETRY_MAX", "5")
	t.Setenv("INDEX_RETRY_INTERVAL_SECONDS", "10")
	t.Setenv("DOCINDEX_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "env_docs", cfg.Storage.Collection)
	assert.Equal(t, 750, cfg.Chunking.ChunkSize)
	assert.Equal(t, 5, cfg.Ingest.RetryMax)
	assert.Equal(t, "10s", cfg.Ingest.RetryInterval)
	assert.Equal(t, 10*time.Second, cfg.RetryIntervalDuration())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvBeatsProjectConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	content := "storage:\n  collection: file_docs\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte(content), 0o644))
	t.Setenv("DOCINDEX_COLLECTION", "env_docs")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "env_docs", cfg.Storage.Collection)
}

func TestLoad_EmbedderAlias(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("DOCINDEX_EMBEDDER", "static")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_OllamaHostCompat(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("OLLAMA_HOST", "http://remote:11434")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://remote:11434", cfg.Embeddings.OllamaHost)

	// DOCINDEX_OLLAMA_HOST is more specific and wins
	t.Setenv("DOCINDEX_OLLAMA_HOST", "http://specific:11434")
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://specific:11434", cfg.Embeddings.OllamaHost)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INDEX_RETRY_MAX=7\n"), 0o644))
	defer os.Unsetenv("INDEX_RETRY_MAX")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ingest.RetryMax)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docindex.yaml"), []byte("storage: [not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoadFile_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  top_k: 11\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Search.TopK)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "chroma" },
			wantMsg: "storage.backend",
		},
		{
			name:    "pgvector without dsn",
			mutate:  func(c *Config) { c.Storage.Backend = "pgvector" },
			wantMsg: "postgres_dsn",
		},
		{
			name:    "empty collection",
			mutate:  func(c *Config) { c.Storage.Collection = "" },
			wantMsg: "collection",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Chunking.ChunkSize = 0 },
			wantMsg: "chunk_size",
		},
		{
			name:    "overlap too large",
			mutate:  func(c *Config) { c.Chunking.Overlap = 1000 },
			wantMsg: "overlap",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Chunking.Strategy = "semantic" },
			wantMsg: "strategy",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Embeddings.Provider = "openai" },
			wantMsg: "provider",
		},
		{
			name:    "zero upload cap",
			mutate:  func(c *Config) { c.Ingest.MaxUploadSize = 0 },
			wantMsg: "max_upload_size",
		},
		{
			name:    "bad extension",
			mutate:  func(c *Config) { c.Ingest.AllowedExtensions = []string{"txt"} },
			wantMsg: "allowed_extensions",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Ingest.Workers = 0 },
			wantMsg: "workers",
		},
		{
			name:    "max_top_k below top_k",
			mutate:  func(c *Config) { c.Search.MaxTopK = 2 },
			wantMsg: "max_top_k",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantMsg: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPathHelpers_Defaults(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.DataDir = "/srv/docindex"

	assert.Equal(t, filepath.Join("/srv/docindex", "uploads"), cfg.UploadsPath())
	assert.Equal(t, filepath.Join("/srv/docindex", "vector_db"), cfg.VectorPath())
	assert.Equal(t, filepath.Join("/srv/docindex", "upload_status.json"), cfg.StatusPath())
	assert.Equal(t, filepath.Join("/srv/docindex", "telemetry.db"), cfg.TelemetryPath())
}

func TestPathHelpers_Overrides(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.UploadsDir = "/mnt/uploads"
	cfg.Storage.VectorDir = "/mnt/vectors"
	cfg.Storage.StatusFile = "/mnt/status.json"

	assert.Equal(t, "/mnt/uploads", cfg.UploadsPath())
	assert.Equal(t, "/mnt/vectors", cfg.VectorPath())
	assert.Equal(t, "/mnt/status.json", cfg.StatusPath())
}

func TestDurationAccessors(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 30*time.Second, cfg.RetryIntervalDuration())
	assert.Equal(t, 60*time.Second, cfg.ExtractTimeoutDuration())
	assert.Equal(t, 60*time.Second, cfg.EmbedTimeoutDuration())
	assert.Equal(t, 120*time.Second, cfg.WarmupTimeoutDuration())
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounceDuration())

	cfg.Ingest.RetryInterval = "2m"
	assert.Equal(t, 2*time.Minute, cfg.RetryIntervalDuration())

	// Unparseable values fall back to the default
	cfg.Ingest.RetryInterval = "soon"
	assert.Equal(t, 30*time.Second, cfg.RetryIntervalDuration())

	cfg.Ingest.RetryInterval = "-5s"
	assert.Equal(t, 30*time.Second, cfg.RetryIntervalDuration())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := NewConfig()
	cfg.Storage.Collection = "roundtrip_docs"
	cfg.Search.TopK = 7
	require.NoError(t, cfg.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, "roundtrip_docs", loaded.Storage.Collection)
	assert.Equal(t, 7, loaded.Search.TopK)
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	assert.Equal(t, filepath.Join("/custom/xdg", "docindex", "config.yaml"), GetUserConfigPath())
}
