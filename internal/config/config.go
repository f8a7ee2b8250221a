// Package config loads the translation server configuration from an
// optional YAML file and FILTERJOIN_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filterjoin/internal/compiler"
)

// Defaults.
const (
	DefaultAddr            = ":8090"
	DefaultMaxBodyBytes    = 10 << 20 // 10MB
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
)

// Config is the server configuration. Zero values mean "use the default".
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`

	// DBPath is the SQLite audit log. Empty disables recording.
	DBPath string `yaml:"db"`

	// DuplicateEdges is the graph duplicate edge policy: first or reject.
	DuplicateEdges string `yaml:"duplicate_edges"`

	// MaxBodyBytes caps the size of a translate request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a Config with every default applied.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (if non-empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML config. Unknown keys are rejected so typos surface.
// An empty document yields a zero Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// withEnv returns cfg with FILTERJOIN_* variables applied on top.
func (c Config) withEnv() Config {
	c.Addr = envOr("FILTERJOIN_ADDR", c.Addr)
	c.DBPath = envOr("FILTERJOIN_DB", c.DBPath)
	c.DuplicateEdges = envOr("FILTERJOIN_DUPLICATE_EDGES", c.DuplicateEdges)
	c.MaxBodyBytes = envInt64("FILTERJOIN_MAX_BODY_BYTES", c.MaxBodyBytes)
	c.LogLevel = envOr("FILTERJOIN_LOG_LEVEL", c.LogLevel)
	c.ShutdownTimeout = envDuration("FILTERJOIN_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	return c
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DuplicateEdges == "" {
		c.DuplicateEdges = string(compiler.DuplicateEdgesFirst)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if _, err := compiler.ParseDuplicateEdgePolicy(c.DuplicateEdges); err != nil {
		return fmt.Errorf("duplicate_edges: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Policy returns the parsed duplicate edge policy.
func (c Config) Policy() compiler.DuplicateEdgePolicy {
	p, err := compiler.ParseDuplicateEdgePolicy(c.DuplicateEdges)
	if err != nil {
		return compiler.DuplicateEdgesFirst
	}
	return p
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: invalid level %q", c.LogLevel)
	}
	return level, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
