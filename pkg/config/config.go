// Package config loads dep2j settings from a TOML file, a .env file and
// DEP2J_* environment variables.
//
// Precedence, lowest to highest: built-in defaults, the config file, the
// environment. Command-line flags are applied on top by the CLI.
//
// Example .dep2j.toml:
//
//	jobs = 8
//	indent = false
//
//	[cache]
//	enabled = true
//	dir = "/var/cache/dep2j"
//	ttl = "72h"
//
//	[server]
//	addr = ":8080"
//	max_body_bytes = 33554432
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/dep2j/pkg/errors"
)

// DefaultFile is the config file read from the working directory when no
// path is given.
const DefaultFile = ".dep2j.toml"

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultMemoryItems  = 4096
	DefaultRedisPrefix  = "dep2j:"
)

// Environment variables.
const (
	EnvJobs         = "DEP2J_JOBS"
	EnvCache        = "DEP2J_CACHE"
	EnvCacheDir     = "DEP2J_CACHE_DIR"
	EnvRedisAddr    = "DEP2J_REDIS_ADDR"
	EnvRedisPass    = "DEP2J_REDIS_PASSWORD"
	EnvRedisPrefix  = "DEP2J_REDIS_PREFIX"
	EnvAddr         = "DEP2J_ADDR"
	EnvMaxBodyBytes = "DEP2J_MAX_BODY_BYTES"
)

// Config holds all settings.
type Config struct {
	Jobs   int          `toml:"jobs"`
	Indent bool         `toml:"indent"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// CacheConfig configures the parse cache.
type CacheConfig struct {
	Enabled       bool     `toml:"enabled"`
	Dir           string   `toml:"dir"`
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	RedisPrefix   string   `toml:"redis_prefix"`
	MemoryItems   int      `toml:"memory_items"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// Duration is a time.Duration written as a Go duration string ("72h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MemoryItems: DefaultMemoryItems,
			RedisPrefix: DefaultRedisPrefix,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is the config file. Empty means DefaultFile, which may be absent.
	// A Path given explicitly must exist.
	Path string

	// EnvFile is a dotenv file loaded into the process environment before
	// variables are read. Empty means DefaultEnvFile; "-" disables it.
	// Variables already set are not overridden.
	EnvFile string

	// Getenv replaces os.Getenv, for tests.
	Getenv func(string) string
}

// Load reads configuration.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if envFile != "-" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load %s", envFile)
		}
	}

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvJobs)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "%s: not an integer: %q", EnvJobs, v)
		}
		c.Jobs = n
	}
	if v := strings.TrimSpace(getenv(EnvCache)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "%s: not a boolean: %q", EnvCache, v)
		}
		c.Cache.Enabled = b
	}
	if v := strings.TrimSpace(getenv(EnvCacheDir)); v != "" {
		c.Cache.Dir = v
	}
	if v := strings.TrimSpace(getenv(EnvRedisAddr)); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv(EnvRedisPass); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := strings.TrimSpace(getenv(EnvRedisPrefix)); v != "" {
		c.Cache.RedisPrefix = v
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvMaxBodyBytes)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "%s: not an integer: %q", EnvMaxBodyBytes, v)
		}
		c.Server.MaxBodyBytes = n
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := errors.ValidateJobs(c.Jobs); err != nil {
		return err
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl must not be negative")
	}
	if c.Cache.MemoryItems < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache memory_items must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server max_body_bytes must be positive")
	}
	return nil
}
