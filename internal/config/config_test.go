package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "", cfg.BasePath)
	require.False(t, cfg.LoggedIn)
	require.Equal(t, 10, cfg.MaxRedirects)
	require.Equal(t, OutputJSON, cfg.Output)
	require.Equal(t, CacheMemory, cfg.Lookup.Cache.Backend)
	require.Equal(t, 24*time.Hour, cfg.Lookup.Cache.TTL)
	require.True(t, cfg.History.Enabled)
	require.NotEmpty(t, cfg.History.Path)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, cfg.Validate(), "defaults must validate")
}

func TestValidate_BasePath(t *testing.T) {
	for _, base := range []string{"", "/gerrit", "/a/b"} {
		require.NoError(t, ValidateBasePath(base), base)
	}
	err := ValidateBasePath("gerrit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must start with")

	err = ValidateBasePath("/gerrit?x=1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "query or fragment")
}

func TestValidate_MaxRedirects(t *testing.T) {
	cfg := Defaults()
	cfg.MaxRedirects = 0
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_redirects")

	cfg.MaxRedirects = maxRedirectsCeiling + 1
	require.Error(t, cfg.Validate())

	cfg.MaxRedirects = 1
	require.NoError(t, cfg.Validate())
}

func TestValidate_Output(t *testing.T) {
	cfg := Defaults()
	cfg.Output = OutputYAML
	require.NoError(t, cfg.Validate())

	cfg.Output = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "output must be")
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "warn"
	require.NoError(t, cfg.Validate())

	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "log_level")
}

func TestValidate_HistoryPathRequired(t *testing.T) {
	cfg := Defaults()
	cfg.History.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "history.path")

	cfg.History.Enabled = false
	require.NoError(t, cfg.Validate())
}

func TestValidateLookup(t *testing.T) {
	tests := []struct {
		name    string
		lookup  LookupConfig
		wantErr string
	}{
		{name: "empty", lookup: LookupConfig{}},
		{name: "https server", lookup: LookupConfig{GerritURL: "https://review.example.org"}},
		{name: "bad scheme", lookup: LookupConfig{GerritURL: "review.example.org"}, wantErr: "http(s) URL"},
		{name: "password without user", lookup: LookupConfig{Password: "secret"}, wantErr: "requires lookup.username"},
		{name: "negative timeout", lookup: LookupConfig{Timeout: -time.Second}, wantErr: "timeout"},
		{name: "redis without url", lookup: LookupConfig{Cache: CacheConfig{Backend: CacheRedis}}, wantErr: "redis_url"},
		{name: "redis", lookup: LookupConfig{Cache: CacheConfig{Backend: CacheRedis, RedisURL: "redis://localhost:6379"}}},
		{name: "unknown backend", lookup: LookupConfig{Cache: CacheConfig{Backend: "memcached"}}, wantErr: "backend must be"},
		{name: "negative ttl", lookup: LookupConfig{Cache: CacheConfig{TTL: -1}}, wantErr: "ttl"},
		{name: "pinned", lookup: LookupConfig{Projects: map[int]string{42: "platform/build"}}},
		{name: "pinned zero", lookup: LookupConfig{Projects: map[int]string{0: "x"}}, wantErr: "positive"},
		{name: "pinned empty repo", lookup: LookupConfig{Projects: map[int]string{7: " "}}, wantErr: "empty repository"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLookup(tt.lookup)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{Enabled: false, Exporter: "bogus"}),
		"disabled tracing is not checked")
	require.NoError(t, ValidateTracing(tracing.Config{Enabled: true, Exporter: "stdout"}))

	err := ValidateTracing(tracing.Config{Enabled: true, Exporter: "jaeger"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracing.exporter")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: "otlp"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: "none", SampleRate: 1.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg := loadConfigFromFile(t, path)
	require.Equal(t, 10, cfg.MaxRedirects)
	require.Equal(t, CacheMemory, cfg.Lookup.Cache.Backend)
	require.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	require.Equal(t, "localhost:4317", cfg.Tracing.OTLPEndpoint)
	require.Empty(t, cfg.Lookup.Projects)
}

func TestLoad_FromYAML(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
base_path: /gerrit
logged_in: true
output: yaml
lookup:
  gerrit_url: https://review.example.org
  timeout: 3s
  cache:
    backend: none
  projects:
    "42": platform/build
    "7": tools/repo
history:
  enabled: false
`)
	require.Equal(t, "/gerrit", cfg.BasePath)
	require.True(t, cfg.LoggedIn)
	require.Equal(t, OutputYAML, cfg.Output)
	require.Equal(t, "https://review.example.org", cfg.Lookup.GerritURL)
	require.Equal(t, 3*time.Second, cfg.Lookup.Timeout)
	require.Equal(t, CacheNone, cfg.Lookup.Cache.Backend)
	require.Equal(t, map[int]string{42: "platform/build", 7: "tools/repo"}, cfg.Lookup.Projects)
	require.False(t, cfg.History.Enabled)
	require.Equal(t, 10, cfg.MaxRedirects, "unset keys fall back to defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GERRITNAV_LOOKUP_PASSWORD", "hunter2")
	t.Setenv("GERRITNAV_MAX_REDIRECTS", "3")

	cfg := loadConfigFromYAML(t, "lookup:\n  username: alice\n")
	require.Equal(t, "alice", cfg.Lookup.Username)
	require.Equal(t, "hunter2", cfg.Lookup.Password)
	require.Equal(t, 3, cfg.MaxRedirects)
}

func TestLoad_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: xml\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	_, err := Load(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid config")
}

func TestLoad_NoConfigFile(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Defaults().MaxRedirects, cfg.MaxRedirects)
}

// loadConfigFromYAML is a helper to load config from YAML string.
func loadConfigFromYAML(t *testing.T, yaml string) Config {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))
	return loadConfigFromFile(t, configPath)
}

func loadConfigFromFile(t *testing.T, path string) Config {
	t.Helper()

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}
