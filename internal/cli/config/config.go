package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/storage"
	"github.com/conduit-lang/halstore/pkg/storage/backend"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// EnvPrefix prefixes every environment variable override, e.g. HALSTORE_BASE_URL
const EnvPrefix = "HALSTORE"

// Config represents the halctl configuration
type Config struct {
	BaseURL             string         `mapstructure:"base_url"`
	Endpoint            string         `mapstructure:"endpoint"`
	Strategy            string         `mapstructure:"strategy"`
	MaxIncludeDepth     int            `mapstructure:"max_include_depth"`
	KeepCachedFragments bool           `mapstructure:"keep_cached_fragments"`
	Timeout             time.Duration  `mapstructure:"timeout"`
	Defaults            DefaultsConfig `mapstructure:"defaults"`
	Log                 LogConfig      `mapstructure:"log"`
	Backend             BackendConfig  `mapstructure:"backend"`
	Models              []ModelConfig  `mapstructure:"models"`
}

// DefaultsConfig holds the library-wide request options
type DefaultsConfig struct {
	Params  map[string]string `mapstructure:"params"`
	Headers map[string]string `mapstructure:"headers"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BackendConfig selects where persistent snapshots live
type BackendConfig struct {
	// Kind is memory, redis, postgres or sqlite
	Kind   string        `mapstructure:"kind"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
	SQL    SQLConfig     `mapstructure:"sql"`
}

// RedisConfig represents Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SQLConfig represents SQL backend settings
type SQLConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ModelConfig declares one model type
type ModelConfig struct {
	Type        string            `mapstructure:"type"`
	Endpoint    string            `mapstructure:"endpoint"`
	Extends     string            `mapstructure:"extends"`
	HostURL     string            `mapstructure:"host_url"`
	APIEndpoint string            `mapstructure:"api_endpoint"`
	Params      map[string]string `mapstructure:"params"`
	Headers     map[string]string `mapstructure:"headers"`
	Properties  []PropertyConfig  `mapstructure:"properties"`
}

// PropertyConfig declares one property of a model type
type PropertyConfig struct {
	Name               string `mapstructure:"name"`
	Kind               string `mapstructure:"kind"`
	External           string `mapstructure:"external"`
	ModelType          string `mapstructure:"model_type"`
	ExcludeFromPayload bool   `mapstructure:"exclude_from_payload"`
	IncludeInPayload   bool   `mapstructure:"include_in_payload"`
}

// Backend kinds
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Load loads the configuration from path, or from halstore.yml / halstore.yaml in the
// working directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("strategy", "etag")
	v.SetDefault("max_include_depth", 10)
	v.SetDefault("keep_cached_fragments", false)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("backend.kind", BackendMemory)
	v.SetDefault("backend.prefix", "halstore:")
	v.SetDefault("backend.ttl", 24*time.Hour)
	v.SetDefault("backend.redis.addr", "localhost:6379")
	v.SetDefault("backend.sql.table", backend.DefaultTable)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("halstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfigFile walks up from the working directory looking for halstore.yml or
// halstore.yaml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"halstore.yml", "halstore.yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no halstore.yml found")
		}
		dir = parent
	}
}

// RequestDefaults returns the library-wide request options, nil when none are set
func (c *Config) RequestDefaults() *transport.RequestOptions {
	if len(c.Defaults.Params) == 0 && len(c.Defaults.Headers) == 0 {
		return nil
	}
	return &transport.RequestOptions{
		Params:  c.Defaults.Params,
		Headers: c.Defaults.Headers,
	}
}

// BackendSettings returns the shared backend configuration
func (c *Config) BackendSettings() backend.Config {
	return backend.Config{
		DefaultTTL: c.Backend.TTL,
		Prefix:     c.Backend.Prefix,
	}
}

// Registry builds a schema registry from the models block. Models are registered in
// file order, so a parent must be declared before the types extending it.
func (c *Config) Registry() (*schema.Registry, error) {
	registry := schema.NewRegistry()

	for _, mc := range c.Models {
		b := schema.New(mc.Type).
			Endpoint(mc.Endpoint).
			HostURL(mc.HostURL).
			APIEndpoint(mc.APIEndpoint)
		if mc.Extends != "" {
			b.Extends(mc.Extends)
		}
		for k, v := range mc.Params {
			b.Param(k, v)
		}
		for k, v := range mc.Headers {
			b.Header(k, v)
		}

		for _, pc := range mc.Properties {
			kind, err := schema.ParsePropertyKind(pc.Kind)
			if err != nil {
				return nil, fmt.Errorf("model %s property %s: %w", mc.Type, pc.Name, err)
			}
			b.Property(schema.Property{
				Name:               pc.Name,
				ExternalName:       pc.External,
				Kind:               kind,
				ModelType:          pc.ModelType,
				ExcludeFromPayload: pc.ExcludeFromPayload,
				IncludeInPayload:   pc.IncludeInPayload,
			})
		}

		s, err := b.Build()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.BaseURL != "" && !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http or https URL, got: %s", cfg.BaseURL)
	}

	kind, err := storage.ParseKind(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if kind == storage.KindCustom {
		return fmt.Errorf("strategy custom can only be configured in code")
	}

	if cfg.MaxIncludeDepth < 0 {
		return fmt.Errorf("max_include_depth must not be negative, got: %d", cfg.MaxIncludeDepth)
	}

	switch cfg.Backend.Kind {
	case BackendMemory, BackendRedis:
	case BackendPostgres, BackendSQLite:
		if cfg.Backend.SQL.DSN == "" {
			return fmt.Errorf("backend.sql.dsn is required for the %s backend", cfg.Backend.Kind)
		}
	default:
		return fmt.Errorf("backend.kind must be one of memory, redis, postgres or sqlite, got: %s", cfg.Backend.Kind)
	}

	seen := make(map[string]bool, len(cfg.Models))
	for i, m := range cfg.Models {
		if m.Type == "" {
			return fmt.Errorf("models[%d]: type is required", i)
		}
		if seen[m.Type] {
			return fmt.Errorf("models[%d]: type %s declared twice", i, m.Type)
		}
		seen[m.Type] = true
	}
	return nil
}
