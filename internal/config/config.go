// Package config provides configuration types and defaults for gerritnav.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/tracing"
)

// Config holds all configuration options for gerritnav.
type Config struct {
	BasePath     string         `mapstructure:"base_path"`
	LoggedIn     bool           `mapstructure:"logged_in"`
	MaxRedirects int            `mapstructure:"max_redirects"`
	Output       string         `mapstructure:"output"` // "json" (default) or "yaml"
	Debug        bool           `mapstructure:"debug"`
	LogPath      string         `mapstructure:"log_path"`
	LogLevel     string         `mapstructure:"log_level"` // debug, info, warn or error
	Lookup       LookupConfig   `mapstructure:"lookup"`
	History      HistoryConfig  `mapstructure:"history"`
	Tracing      tracing.Config `mapstructure:"tracing"`
}

// LookupConfig configures how a change number is mapped to its repository
// when a URL omits it.
type LookupConfig struct {
	// GerritURL is the Gerrit server queried over REST. Empty disables
	// remote lookups.
	GerritURL string        `mapstructure:"gerrit_url"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Cache     CacheConfig   `mapstructure:"cache"`

	// Projects pins change numbers to repositories. Pinned entries are
	// consulted before the server.
	Projects map[int]string `mapstructure:"projects"`
}

// CacheConfig configures the lookup cache.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"` // "memory" (default), "redis" or "none"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// HistoryConfig configures the navigation history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Limit   int    `mapstructure:"limit"` // default for `history`
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

const maxRedirectsCeiling = 50

// DefaultHistoryPath returns the default history database location:
// ~/.config/gerritnav/history.db
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gerritnav", "history.db")
	}
	return filepath.Join(home, ".config", "gerritnav", "history.db")
}

// DefaultTracesFilePath returns the default traces file location.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gerritnav", "traces", "traces.jsonl")
	}
	return filepath.Join(home, ".config", "gerritnav", "traces", "traces.jsonl")
}

// ValidateLookup checks the lookup configuration.
func ValidateLookup(lookup LookupConfig) error {
	if lookup.GerritURL != "" &&
		!strings.HasPrefix(lookup.GerritURL, "http://") &&
		!strings.HasPrefix(lookup.GerritURL, "https://") {
		return fmt.Errorf("lookup.gerrit_url must be an http(s) URL, got %q", lookup.GerritURL)
	}
	if lookup.Password != "" && lookup.Username == "" {
		return fmt.Errorf("lookup.password requires lookup.username")
	}
	if lookup.Timeout < 0 {
		return fmt.Errorf("lookup.timeout must not be negative")
	}

	switch lookup.Cache.Backend {
	case "", CacheMemory, CacheNone:
	case CacheRedis:
		if lookup.Cache.RedisURL == "" {
			return fmt.Errorf("lookup.cache.redis_url is required when backend is %q", CacheRedis)
		}
	default:
		return fmt.Errorf("lookup.cache.backend must be %q, %q or %q, got %q",
			CacheMemory, CacheRedis, CacheNone, lookup.Cache.Backend)
	}
	if lookup.Cache.TTL < 0 {
		return fmt.Errorf("lookup.cache.ttl must not be negative")
	}

	for num, project := range lookup.Projects {
		if num <= 0 {
			return fmt.Errorf("lookup.projects: change number must be positive, got %d", num)
		}
		if strings.TrimSpace(project) == "" {
			return fmt.Errorf("lookup.projects: change %d has an empty repository", num)
		}
	}
	return nil
}

// ValidateTracing checks the tracing configuration.
func ValidateTracing(t tracing.Config) error {
	if !t.Enabled {
		return nil
	}
	switch t.Exporter {
	case "file", "stdout", "otlp", "none", "":
	default:
		return fmt.Errorf("tracing.exporter must be \"file\", \"stdout\", \"otlp\" or \"none\", got %q", t.Exporter)
	}
	if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %v", t.SampleRate)
	}
	return nil
}

// ValidateBasePath checks that the base path is empty or an absolute path
// without query or fragment.
func ValidateBasePath(base string) error {
	if base == "" {
		return nil
	}
	if !strings.HasPrefix(base, "/") {
		return fmt.Errorf("base_path must start with \"/\", got %q", base)
	}
	if strings.ContainsAny(base, "?#") {
		return fmt.Errorf("base_path must not contain a query or fragment, got %q", base)
	}
	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateBasePath(c.BasePath); err != nil {
		return err
	}
	if c.MaxRedirects < 1 || c.MaxRedirects > maxRedirectsCeiling {
		return fmt.Errorf("max_redirects must be between 1 and %d, got %d", maxRedirectsCeiling, c.MaxRedirects)
	}
	switch c.Output {
	case "", OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be %q or %q, got %q", OutputJSON, OutputYAML, c.Output)
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	if err := ValidateLookup(c.Lookup); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// Defaults returns the default configuration.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		MaxRedirects: 10,
		Output:       OutputJSON,
		LogLevel:     "debug",
		Lookup: LookupConfig{
			Timeout: 10 * time.Second,
			Cache: CacheConfig{
				Backend: CacheMemory,
				TTL:     24 * time.Hour,
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
			Limit:   20,
		},
		Tracing: tc,
	}
}

// DefaultConfigTemplate returns the content of a freshly written config
// file.
func DefaultConfigTemplate() string {
	return `# gerritnav configuration

# Prefix the Gerrit UI is served under, e.g. "/gerrit". Empty for the root.
base_path: ""

# Signed-in users land on their dashboard instead of the open-changes search.
logged_in: false

# Redirects followed per navigation before giving up.
max_redirects: 10

# Output format for printed view states: json or yaml.
output: json

# Debug logging (also enabled with GERRITNAV_DEBUG=1).
debug: false
# log_path: ~/.config/gerritnav/debug.log
log_level: debug

# Change URLs without a repository (/c/123) are resolved through a lookup.
lookup:
  # Gerrit server to query, e.g. https://review.example.org
  gerrit_url: ""
  # Credentials for the authenticated REST prefix (/a/). The password can
  # also come from GERRITNAV_LOOKUP_PASSWORD.
  username: ""
  timeout: 10s
  cache:
    # memory, redis or none
    backend: memory
    # redis_url: redis://localhost:6379/0
    ttl: 24h
  # Pinned change-to-repository entries, consulted before the server.
  # Written by 'gerritnav pin'.
  projects: {}

# Navigation history (SQLite).
history:
  enabled: true
  # path: ~/.config/gerritnav/history.db
  limit: 20

# OpenTelemetry tracing of navigations.
tracing:
  enabled: false
  # file, stdout, otlp or none
  exporter: file
  # file_path: ~/.config/gerritnav/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file with default settings.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "path", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
