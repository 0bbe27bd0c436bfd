// Package config loads and validates docindex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/docindex/config.yaml)
//  3. Project config (docindex.yaml or .docindex.yaml in the working directory)
//  4. Environment variables (DOCINDEX_*, plus the bare INDEX_RETRY_MAX,
//     INDEX_RETRY_INTERVAL_SECONDS, and OLLAMA_HOST names honored for
//     compatibility with existing deployments)
//
// A .env file in the working directory is loaded into the environment first,
// so deployments can keep the override names in one place.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete docindex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// StorageConfig configures where documents, vectors, and status live.
type StorageConfig struct {
	// DataDir is the root for all durable state (default: ./data).
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// UploadsDir overrides the uploads directory (default: <data_dir>/uploads).
	UploadsDir string `yaml:"uploads_dir" json:"uploads_dir"`
	// VectorDir overrides the vector store directory (default: <data_dir>/vector_db).
	VectorDir string `yaml:"vector_dir" json:"vector_dir"`
	// StatusFile overrides the status store path (default: <data_dir>/upload_status.json).
	StatusFile string `yaml:"status_file" json:"status_file"`

	// Backend selects the vector store backend.
	// Options: "hnsw" (default, persistent local), "memory" (ephemeral),
	// "pgvector" (PostgreSQL with the pgvector extension).
	Backend string `yaml:"backend" json:"backend"`

	// Collection is the logical collection name.
	Collection string `yaml:"collection" json:"collection"`

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// ChunkingConfig configures the text chunking strategy.
type ChunkingConfig struct {
	ChunkSize   int `yaml:"chunk_size" json:"chunk_size"`
	Overlap     int `yaml:"overlap" json:"overlap"`
	MinChunkLen int `yaml:"min_chunk_len" json:"min_chunk_len"`
	// Strategy is one of "auto", "sentence", "paragraph", "character".
	Strategy string `yaml:"strategy" json:"strategy"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama" (default) or "static". Empty selects ollama.
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// Dimensions pins the vector dimensionality. 0 auto-detects from the model.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	BatchSize  int `yaml:"batch_size" json:"batch_size"`
	// Timeout is the per-request embedding timeout (e.g. "60s").
	Timeout string `yaml:"timeout" json:"timeout"`
	// WarmupTimeout applies to the first request, which may load the model.
	WarmupTimeout string `yaml:"warmup_timeout" json:"warmup_timeout"`
	// CacheDisabled turns off the LRU embedding cache.
	CacheDisabled bool `yaml:"cache_disabled" json:"cache_disabled"`
	CacheSize     int  `yaml:"cache_size" json:"cache_size"`
}

// IngestConfig configures upload intake and the ingestion pipeline.
type IngestConfig struct {
	// MaxUploadSize is the upload size cap in bytes (default: 10 MiB).
	MaxUploadSize int64 `yaml:"max_upload_size" json:"max_upload_size"`
	// AllowedExtensions is the upload extension allowlist.
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	// Workers bounds concurrent ingestion pipelines.
	Workers int `yaml:"workers" json:"workers"`
	// RetryMax caps automatic retry attempts per file (INDEX_RETRY_MAX).
	RetryMax int `yaml:"retry_max" json:"retry_max"`
	// RetryInterval is the retry worker pass interval, e.g. "30s"
	// (INDEX_RETRY_INTERVAL_SECONDS).
	RetryInterval string `yaml:"retry_interval" json:"retry_interval"`
	// ExtractTimeout bounds the text extraction stage.
	ExtractTimeout string `yaml:"extract_timeout" json:"extract_timeout"`
	// OCRBinary names the tesseract executable used for image OCR.
	OCRBinary string `yaml:"ocr_binary" json:"ocr_binary"`
	// OCRLanguages is the tesseract -l language spec.
	OCRLanguages string `yaml:"ocr_languages" json:"ocr_languages"`
	// WatchDebounce is the drop-directory watcher debounce window.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// SearchConfig configures query behavior.
type SearchConfig struct {
	// TopK is the default number of results.
	TopK int `yaml:"top_k" json:"top_k"`
	// MaxTopK clamps caller-provided top_k values.
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`
	// ContextMaxTokens bounds formatted context blocks.
	ContextMaxTokens int `yaml:"context_max_tokens" json:"context_max_tokens"`
}

// LoggingConfig configures the engine log file.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File overrides the log path (default: ~/.docindex/logs/docindex.log).
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir:    "./data",
			Backend:    "hnsw",
			Collection: "servibot_docs",
		},
		Chunking: ChunkingConfig{
			ChunkSize:   1000,
			Overlap:     200,
			MinChunkLen: 100,
			Strategy:    "auto",
		},
		Embeddings: EmbeddingsConfig{
			Provider:      "", // Empty selects ollama
			Model:         "nomic-embed-text",
			OllamaHost:    "", // Empty uses default http://localhost:11434
			Dimensions:    0,  // Auto-detect from embedder
			BatchSize:     32,
			Timeout:       "60s",
			WarmupTimeout: "120s", // First request may load the model
			CacheSize:     1000,
		},
		Ingest: IngestConfig{
			MaxUploadSize:     10 * 1024 * 1024,
			AllowedExtensions: []string{".pdf", ".png", ".jpg", ".jpeg", ".txt", ".md"},
			Workers:           4,
			RetryMax:          3,
			RetryInterval:     "30s",
			ExtractTimeout:    "60s",
			OCRBinary:         "tesseract",
			OCRLanguages:      "spa+eng",
			WatchDebounce:     "200ms",
		},
		Search: SearchConfig{
			TopK:             5,
			MaxTopK:          100,
			ContextMaxTokens: 1800,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      "", // Empty uses the default log path
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/docindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "docindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "docindex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil // No user config is fine
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified working directory.
func Load(dir string) (*Config, error) {
	// A .env in the working directory feeds the env overrides below.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := NewConfig()

	// Step 1: Load user/global config (if exists)
	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	// Step 2: Load project config (overrides user config)
	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	// Step 3: Apply environment variable overrides (highest precedence)
	cfg.applyEnvOverrides()

	// Step 4: Validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from an explicit file path, skipping
// discovery. Environment overrides still apply.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir attempts to load configuration from docindex.yaml or .docindex.yaml.
func (c *Config) loadFromDir(dir string) error {
	// Visible file takes precedence
	for _, name := range []string{"docindex.yaml", ".docindex.yaml", ".docindex.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Use a temporary struct for parsing to detect type errors
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Merge parsed values with defaults (only non-zero values)
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Storage
	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.UploadsDir != "" {
		c.Storage.UploadsDir = other.Storage.UploadsDir
	}
	if other.Storage.VectorDir != "" {
		c.Storage.VectorDir = other.Storage.VectorDir
	}
	if other.Storage.StatusFile != "" {
		c.Storage.StatusFile = other.Storage.StatusFile
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Collection != "" {
		c.Storage.Collection = other.Storage.Collection
	}
	if other.Storage.PostgresDSN != "" {
		c.Storage.PostgresDSN = other.Storage.PostgresDSN
	}

	// Chunking
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}
	if other.Chunking.MinChunkLen != 0 {
		c.Chunking.MinChunkLen = other.Chunking.MinChunkLen
	}
	if other.Chunking.Strategy != "" {
		c.Chunking.Strategy = other.Chunking.Strategy
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.Timeout != "" {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.WarmupTimeout != "" {
		c.Embeddings.WarmupTimeout = other.Embeddings.WarmupTimeout
	}
	if other.Embeddings.CacheDisabled {
		c.Embeddings.CacheDisabled = true
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	// Ingest
	if other.Ingest.MaxUploadSize != 0 {
		c.Ingest.MaxUploadSize = other.Ingest.MaxUploadSize
	}
	if len(other.Ingest.AllowedExtensions) > 0 {
		c.Ingest.AllowedExtensions = other.Ingest.AllowedExtensions
	}
	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if other.Ingest.RetryMax != 0 {
		c.Ingest.RetryMax = other.Ingest.RetryMax
	}
	if other.Ingest.RetryInterval != "" {
		c.Ingest.RetryInterval = other.Ingest.RetryInterval
	}
	if other.Ingest.ExtractTimeout != "" {
		c.Ingest.ExtractTimeout = other.Ingest.ExtractTimeout
	}
	if other.Ingest.OCRBinary != "" {
		c.Ingest.OCRBinary = other.Ingest.OCRBinary
	}
	if other.Ingest.OCRLanguages != "" {
		c.Ingest.OCRLanguages = other.Ingest.OCRLanguages
	}
	if other.Ingest.WatchDebounce != "" {
		c.Ingest.WatchDebounce = other.Ingest.WatchDebounce
	}

	// Search
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.MaxTopK != 0 {
		c.Search.MaxTopK = other.Search.MaxTopK
	}
	if other.Search.ContextMaxTokens != 0 {
		c.Search.ContextMaxTokens = other.Search.ContextMaxTokens
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies DOCINDEX_* environment variable overrides, plus
// the bare INDEX_RETRY_MAX / INDEX_RETRY_INTERVAL_SECONDS / OLLAMA_HOST names.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCINDEX_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("DOCINDEX_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DOCINDEX_COLLECTION"); v != "" {
		c.Storage.Collection = v
	}
	if v := os.Getenv("DOCINDEX_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}

	if v := os.Getenv("DOCINDEX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.ChunkSize = n
		}
	}
	if v := os.Getenv("DOCINDEX_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunking.Overlap = n
		}
	}

	if v := os.Getenv("DOCINDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// DOCINDEX_EMBEDDER is an alias for DOCINDEX_EMBEDDINGS_PROVIDER
	if v := os.Getenv("DOCINDEX_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCINDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	// Bare OLLAMA_HOST is honored for compatibility with Ollama tooling.
	if v := os.Getenv("OLLAMA_HOST"); v != "" && c.Embeddings.OllamaHost == "" {
		c.Embeddings.OllamaHost = v
	}

	// Spec-level names used by existing deployments.
	if v := os.Getenv("INDEX_RETRY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Ingest.RetryMax = n
		}
	}
	if v := os.Getenv("INDEX_RETRY_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.RetryInterval = fmt.Sprintf("%ds", n)
		}
	}
	if v := os.Getenv("DOCINDEX_MAX_UPLOAD_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Ingest.MaxUploadSize = n
		}
	}

	if v := os.Getenv("DOCINDEX_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}

	if v := os.Getenv("DOCINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// UploadsPath returns the resolved uploads directory.
func (c *Config) UploadsPath() string {
	if c.Storage.UploadsDir != "" {
		return c.Storage.UploadsDir
	}
	return filepath.Join(c.Storage.DataDir, "uploads")
}

// VectorPath returns the resolved vector store directory.
func (c *Config) VectorPath() string {
	if c.Storage.VectorDir != "" {
		return c.Storage.VectorDir
	}
	return filepath.Join(c.Storage.DataDir, "vector_db")
}

// StatusPath returns the resolved status store path.
func (c *Config) StatusPath() string {
	if c.Storage.StatusFile != "" {
		return c.Storage.StatusFile
	}
	return filepath.Join(c.Storage.DataDir, "upload_status.json")
}

// TelemetryPath returns the resolved telemetry database path.
func (c *Config) TelemetryPath() string {
	return filepath.Join(c.Storage.DataDir, "telemetry.db")
}

// RetryIntervalDuration parses the retry worker interval.
func (c *Config) RetryIntervalDuration() time.Duration {
	return parseDurationDefault(c.Ingest.RetryInterval, 30*time.Second)
}

// ExtractTimeoutDuration parses the extraction stage timeout.
func (c *Config) ExtractTimeoutDuration() time.Duration {
	return parseDurationDefault(c.Ingest.ExtractTimeout, 60*time.Second)
}

// EmbedTimeoutDuration parses the per-request embedding timeout.
func (c *Config) EmbedTimeoutDuration() time.Duration {
	return parseDurationDefault(c.Embeddings.Timeout, 60*time.Second)
}

// WarmupTimeoutDuration parses the first-request embedding timeout.
func (c *Config) WarmupTimeoutDuration() time.Duration {
	return parseDurationDefault(c.Embeddings.WarmupTimeout, 120*time.Second)
}

// WatchDebounceDuration parses the watcher debounce window.
func (c *Config) WatchDebounceDuration() time.Duration {
	return parseDurationDefault(c.Ingest.WatchDebounce, 200*time.Millisecond)
}

// parseDurationDefault parses a duration string, falling back on error.
func parseDurationDefault(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	// Storage backend
	validBackends := map[string]bool{"hnsw": true, "memory": true, "pgvector": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		return fmt.Errorf("storage.backend must be 'hnsw', 'memory', or 'pgvector', got %s", c.Storage.Backend)
	}
	if strings.ToLower(c.Storage.Backend) == "pgvector" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required when storage.backend is 'pgvector'")
	}
	if c.Storage.Collection == "" {
		return fmt.Errorf("storage.collection must not be empty")
	}

	// Chunking
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must be smaller than chunk_size (%d >= %d)", c.Chunking.Overlap, c.Chunking.ChunkSize)
	}
	if c.Chunking.MinChunkLen < 0 {
		return fmt.Errorf("chunking.min_chunk_len must be non-negative, got %d", c.Chunking.MinChunkLen)
	}
	validStrategies := map[string]bool{"auto": true, "sentence": true, "paragraph": true, "character": true}
	if !validStrategies[strings.ToLower(c.Chunking.Strategy)] {
		return fmt.Errorf("chunking.strategy must be 'auto', 'sentence', 'paragraph', or 'character', got %s", c.Chunking.Strategy)
	}

	// Embeddings provider (empty selects ollama)
	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty, got %s", c.Embeddings.Provider)
		}
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	// Ingest
	if c.Ingest.MaxUploadSize <= 0 {
		return fmt.Errorf("ingest.max_upload_size must be positive, got %d", c.Ingest.MaxUploadSize)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	if c.Ingest.RetryMax < 0 {
		return fmt.Errorf("ingest.retry_max must be non-negative, got %d", c.Ingest.RetryMax)
	}
	for _, ext := range c.Ingest.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("ingest.allowed_extensions entries must start with '.', got %s", ext)
		}
	}

	// Search
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.MaxTopK < c.Search.TopK {
		return fmt.Errorf("search.max_top_k must be >= top_k (%d < %d)", c.Search.MaxTopK, c.Search.TopK)
	}

	// Logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
