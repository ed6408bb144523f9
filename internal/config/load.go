package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. GERRITNAV_LOOKUP_PASSWORD.
const EnvPrefix = "GERRITNAV"

// SetDefaults registers Defaults() on v so unset keys and environment
// overrides resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("base_path", d.BasePath)
	v.SetDefault("logged_in", d.LoggedIn)
	v.SetDefault("max_redirects", d.MaxRedirects)
	v.SetDefault("output", d.Output)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("lookup.gerrit_url", d.Lookup.GerritURL)
	v.SetDefault("lookup.username", d.Lookup.Username)
	v.SetDefault("lookup.password", d.Lookup.Password)
	v.SetDefault("lookup.timeout", d.Lookup.Timeout)
	v.SetDefault("lookup.cache.backend", d.Lookup.Cache.Backend)
	v.SetDefault("lookup.cache.redis_url", d.Lookup.Cache.RedisURL)
	v.SetDefault("lookup.cache.ttl", d.Lookup.Cache.TTL)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the config file configured on v, if any, and decodes the
// result. A missing file is not an error; defaults apply.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals the current values of v and validates them.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
