// Package config loads runtime settings from config files, LSC_* environment
// variables, .env files and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/litescript/ls-constellations/internal/gaia"
	"github.com/litescript/ls-constellations/internal/logging"
	"github.com/litescript/ls-constellations/internal/populate"
	"github.com/litescript/ls-constellations/internal/simbad"
	"github.com/litescript/ls-constellations/internal/store"
	"github.com/litescript/ls-constellations/internal/tap"
	"github.com/litescript/ls-constellations/internal/version"
)

// EnvPrefix is prepended to every environment override, e.g. LSC_STORE_DSN.
const EnvPrefix = "LSC"

// Entry modes for missing data.
const (
	EntryAuto   = "auto"
	EntryPrompt = "prompt"
	EntryForm   = "form"
	EntryNone   = "none"
)

// ServiceConfig is the endpoint of one TAP service.
type ServiceConfig struct {
	URL string `mapstructure:"url"`
}

// QueryConfig controls how TAP queries are paced and retried.
type QueryConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// BreakerConfig controls the per-service circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PopulateConfig controls the populate command.
type PopulateConfig struct {
	Delay           time.Duration `mapstructure:"delay"`
	SkipExisting    bool          `mapstructure:"skip_existing"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	Reset           bool          `mapstructure:"reset"`
}

// EntryConfig controls how missing data is supplied.
type EntryConfig struct {
	Mode string `mapstructure:"mode"`
	// Answers is an optional YAML file of pre-recorded answers, consulted
	// before any interactive provider.
	Answers string `mapstructure:"answers"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr  string  `mapstructure:"addr"`
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
	// TrustProxy keys rate limits by X-Forwarded-For. Set it only behind a
	// reverse proxy that overwrites the header.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// Config holds all runtime configuration.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Simbad   ServiceConfig  `mapstructure:"simbad"`
	Gaia     ServiceConfig  `mapstructure:"gaia"`
	Query    QueryConfig    `mapstructure:"query"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Store    StoreConfig    `mapstructure:"store"`
	Populate PopulateConfig `mapstructure:"populate"`
	Entry    EntryConfig    `mapstructure:"entry"`
	Server   ServerConfig   `mapstructure:"server"`
}

// SetDefaults registers every key's default on v. Keys without a default
// are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	breaker := tap.DefaultBreakerConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("simbad.url", simbad.DefaultURL)
	v.SetDefault("gaia.url", gaia.DefaultURL)
	v.SetDefault("query.interval", tap.DefaultInterval)
	v.SetDefault("query.timeout", tap.DefaultTimeout)
	v.SetDefault("query.max_retries", 0)
	v.SetDefault("query.user_agent", version.UserAgent)
	v.SetDefault("breaker.max_failures", breaker.MaxFailures)
	v.SetDefault("breaker.timeout", breaker.Timeout)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "constellations.db")
	v.SetDefault("populate.delay", populate.DefaultDelay)
	v.SetDefault("populate.skip_existing", false)
	v.SetDefault("populate.continue_on_error", false)
	v.SetDefault("populate.reset", false)
	v.SetDefault("entry.mode", EntryAuto)
	v.SetDefault("entry.answers", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.trust_proxy", false)
}

// BindEnv makes LSC_* variables override keys, with dots replaced by
// underscores: LSC_STORE_DSN sets store.dsn.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the global viper instance.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom applies defaults and environment bindings to v, then decodes and
// validates it.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Simbad.URL == "" {
		errs = append(errs, errors.New("simbad.url is required"))
	}
	if c.Query.Interval < 0 {
		errs = append(errs, errors.New("query.interval must not be negative"))
	}
	if c.Query.Timeout <= 0 {
		errs = append(errs, errors.New("query.timeout must be positive"))
	}
	if c.Query.MaxRetries < 0 {
		errs = append(errs, errors.New("query.max_retries must not be negative"))
	}
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverSQLite, "sqlite3", store.DriverPostgres, "postgresql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Populate.Delay < 0 {
		errs = append(errs, errors.New("populate.delay must not be negative"))
	}
	switch c.Entry.Mode {
	case EntryAuto, EntryPrompt, EntryForm, EntryNone:
	default:
		errs = append(errs, fmt.Errorf("entry.mode %q is not one of auto, prompt, form, none", c.Entry.Mode))
	}
	if c.Server.Rate < 0 || c.Server.Burst < 0 {
		errs = append(errs, errors.New("server.rate and server.burst must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// LoadDotEnv loads the given .env files into the process environment
// without overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// ConfigName is the config file base name searched for in the working
// directory and the home directory, as .yaml or .toml.
const ConfigName = ".ls-constellations"

// ReadFile loads path into v, or searches for ConfigName when path is empty.
// A missing searched-for file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
