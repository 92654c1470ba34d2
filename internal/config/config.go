// Package config loads edumate configuration from defaults, YAML files and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// ProjectConfigName is the per-project configuration file.
const ProjectConfigName = ".edumate.yaml"

// Config represents the complete edumate configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig locates the document root and the persisted store.
type PathsConfig struct {
	// Documents is the root whose sub-directories become course/chapter/topics.
	Documents string `yaml:"documents" json:"documents"`
	// Database is the directory holding the index artifacts.
	Database string `yaml:"database" json:"database"`
	// Extensions lists the file types picked up by a scan, in extractor order.
	Extensions []string `yaml:"extensions" json:"extensions"`
	Exclude    []string `yaml:"exclude" json:"exclude"`
	// PruneMissing drops chunks of registered files that disappeared from disk.
	PruneMissing bool `yaml:"prune_missing" json:"prune_missing"`
}

// ChunkingConfig controls word-window chunking.
type ChunkingConfig struct {
	Size    int `yaml:"size" json:"size"`
	Overlap int `yaml:"overlap" json:"overlap"`
}

// SearchConfig controls topic search.
type SearchConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`
	// Threshold is the minimum cosine similarity for content matches.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// MetadataScore is the fixed similarity given to title/topic matches.
	MetadataScore float64 `yaml:"metadata_score" json:"metadata_score"`
	// Backend selects the similarity index: "flat" or "hnsw".
	Backend string     `yaml:"backend" json:"backend"`
	HNSW    HNSWConfig `yaml:"hnsw" json:"hnsw"`
}

// HNSWConfig tunes the approximate backend.
type HNSWConfig struct {
	M        int `yaml:"m" json:"m"`
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static", "ollama" or "openai".
	Provider   string `yaml:"provider" json:"provider"`
	// Model is provider specific; empty selects the provider's default.
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// OpenAIBaseURL overrides the API endpoint for OpenAI-compatible servers.
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`
	Timeout       string `yaml:"timeout" json:"timeout"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
}

// WatchConfig controls the folder watch loop.
type WatchConfig struct {
	Interval string `yaml:"interval" json:"interval"`
	// Notify enables filesystem events to trigger an early rescan.
	Notify   bool   `yaml:"notify" json:"notify"`
	Debounce string `yaml:"debounce" json:"debounce"`
}

// TelemetryConfig controls the local query log.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ServerConfig holds settings for long-running commands.
type ServerConfig struct {
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/.DS_Store",
	"**/~$*",
	"**/.~lock.*",
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Documents:    "documents",
			Database:     "vector_db",
			Extensions:   []string{".pdf", ".docx", ".txt", ".md"},
			Exclude:      append([]string(nil), defaultExcludePatterns...),
			PruneMissing: true,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Search: SearchConfig{
			TopK:          3,
			Threshold:     0.6,
			MetadataScore: 0.95,
			Backend:       "flat",
			HNSW: HNSWConfig{
				M:        16,
				EfSearch: 64,
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "static",
			Timeout:   "30s",
			CacheSize: 1000,
		},
		Watch: WatchConfig{
			Interval: "10s",
			Notify:   true,
			Debounce: "500ms",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/edumate/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/edumate/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "edumate", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "edumate", "config.yaml")
	}
	return filepath.Join(home, ".config", "edumate", "config.yaml")
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/edumate/config.yaml)
//  3. Project config (.edumate.yaml in dir)
//  4. Environment variables (EDUMATE_*)
//
// Relative document and database paths are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if projectPath := filepath.Join(dir, ProjectConfigName); fileExists(projectPath) {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values, so keys absent from the
// file keep their earlier value and explicit zeros (overlap: 0) survive.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EDUMATE_DOCUMENTS"); v != "" {
		c.Paths.Documents = v
	}
	if v := os.Getenv("EDUMATE_DB_PATH"); v != "" {
		c.Paths.Database = v
	}
	if v := os.Getenv("EDUMATE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("EDUMATE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("EDUMATE_SEARCH_THRESHOLD"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.Threshold = f
		}
	}
	if v := os.Getenv("EDUMATE_INDEX_BACKEND"); v != "" {
		c.Search.Backend = v
	}
	if v := os.Getenv("EDUMATE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("EDUMATE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("EDUMATE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("EDUMATE_WATCH_INTERVAL"); v != "" {
		c.Watch.Interval = v
	}
	if v := os.Getenv("EDUMATE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("EDUMATE_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

func (c *Config) resolvePaths(dir string) {
	if c.Paths.Documents != "" && !filepath.IsAbs(c.Paths.Documents) {
		c.Paths.Documents = filepath.Join(dir, c.Paths.Documents)
	}
	if c.Paths.Database != "" && !filepath.IsAbs(c.Paths.Database) {
		c.Paths.Database = filepath.Join(dir, c.Paths.Database)
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate checks the configuration. Chunking errors are reported as
// config errors so callers fail before any document is touched.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return eduerrors.New(eduerrors.ErrCodeChunkParams,
			fmt.Sprintf("chunking.size must be positive, got %d", c.Chunking.Size), nil)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return eduerrors.New(eduerrors.ErrCodeChunkParams,
			fmt.Sprintf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap), nil)
	}

	if c.Paths.Database == "" {
		return eduerrors.ConfigError("paths.database must be set", nil)
	}
	if len(c.Paths.Extensions) == 0 {
		return eduerrors.ConfigError("paths.extensions must list at least one type", nil)
	}

	if c.Search.TopK <= 0 {
		return eduerrors.ConfigError(fmt.Sprintf("search.top_k must be positive, got %d", c.Search.TopK), nil)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return eduerrors.ConfigError(fmt.Sprintf("search.threshold must be between -1 and 1, got %f", c.Search.Threshold), nil)
	}
	switch strings.ToLower(c.Search.Backend) {
	case "flat", "hnsw":
	default:
		return eduerrors.ConfigError(fmt.Sprintf("search.backend must be 'flat' or 'hnsw', got %s", c.Search.Backend), nil)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "static", "ollama", "openai":
	default:
		return eduerrors.ConfigError(
			fmt.Sprintf("embeddings.provider must be 'static', 'ollama' or 'openai', got %s", c.Embeddings.Provider), nil)
	}

	for name, v := range map[string]string{
		"watch.interval":     c.Watch.Interval,
		"watch.debounce":     c.Watch.Debounce,
		"embeddings.timeout": c.Embeddings.Timeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return eduerrors.ConfigError(fmt.Sprintf("%s must be a positive duration, got %q", name, v), err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return eduerrors.ConfigError(
			fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	return nil
}

// WatchInterval returns the polling interval. Call after Validate.
func (c *Config) WatchInterval() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Interval)
	return d
}

// WatchDebounce returns the quiet period before a change-triggered rescan.
func (c *Config) WatchDebounce() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// EmbeddingTimeout returns the per-request timeout for remote providers.
func (c *Config) EmbeddingTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Embeddings.Timeout)
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
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
