// Package config loads relay settings from the process environment, with
// an optional YAML file overlay for fields that do not change per deploy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs the relay reads at startup. Env vars are
// the source of truth; a YAML file named by RELAY_CONFIG_FILE may supply
// the same fields but never overrides an explicitly set env var.
type Config struct {
	Port              int           `yaml:"port"`
	CORSOrigin        string        `yaml:"corsOrigin"`
	TrustedProxies    int           `yaml:"trustedProxies"`
	LogLevel          string        `yaml:"logLevel"`
	RoomTTLDefault    time.Duration `yaml:"-"`
	RoomTTLDefaultSec int           `yaml:"roomTTLDefaultSeconds"`
}

// DefaultConfig holds the relay's out-of-the-box settings.
func DefaultConfig() *Config {
	return &Config{
		Port:              3001,
		CORSOrigin:        "*",
		TrustedProxies:    0,
		LogLevel:          "info",
		RoomTTLDefaultSec: 3600,
		RoomTTLDefault:    time.Hour,
	}
}

// Validate rejects a configuration that would make the relay misbehave at
// startup rather than failing mysteriously once requests arrive.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.TrustedProxies < 0 {
		return fmt.Errorf("trusted proxies count cannot be negative")
	}
	if c.RoomTTLDefaultSec <= 0 {
		return fmt.Errorf("room ttl default must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// LoadFromEnv reads RELAY_PORT, CORS_ORIGIN, TRUSTED_PROXIES, LOG_LEVEL,
// and ROOM_TTL_DEFAULT_SECONDS, falling back to DefaultConfig for anything
// unset or unparsable.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("RELAY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrustedProxies = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ROOM_TTL_DEFAULT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RoomTTLDefaultSec = n
		}
	}
	cfg.RoomTTLDefault = time.Duration(cfg.RoomTTLDefaultSec) * time.Second

	return cfg
}

type fileOverlay struct {
	Port              *int    `yaml:"port"`
	CORSOrigin        *string `yaml:"corsOrigin"`
	TrustedProxies    *int    `yaml:"trustedProxies"`
	LogLevel          *string `yaml:"logLevel"`
	RoomTTLDefaultSec *int    `yaml:"roomTTLDefaultSeconds"`
}

// applyFile merges a YAML overlay onto cfg, only filling fields the caller
// never set via an environment variable.
func applyFile(cfg *Config, path string, envSet map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.Port != nil && !envSet["RELAY_PORT"] {
		cfg.Port = *overlay.Port
	}
	if overlay.CORSOrigin != nil && !envSet["CORS_ORIGIN"] {
		cfg.CORSOrigin = *overlay.CORSOrigin
	}
	if overlay.TrustedProxies != nil && !envSet["TRUSTED_PROXIES"] {
		cfg.TrustedProxies = *overlay.TrustedProxies
	}
	if overlay.LogLevel != nil && !envSet["LOG_LEVEL"] {
		cfg.LogLevel = *overlay.LogLevel
	}
	if overlay.RoomTTLDefaultSec != nil && !envSet["ROOM_TTL_DEFAULT_SECONDS"] {
		cfg.RoomTTLDefaultSec = *overlay.RoomTTLDefaultSec
	}
	cfg.RoomTTLDefault = time.Duration(cfg.RoomTTLDefaultSec) * time.Second
	return nil
}

// Load reads the environment, then enriches with RELAY_CONFIG_FILE if set.
// Env vars always win over the file; the file only fills gaps.
func Load() (*Config, error) {
	envSet := map[string]bool{
		"RELAY_PORT":               os.Getenv("RELAY_PORT") != "",
		"CORS_ORIGIN":              os.Getenv("CORS_ORIGIN") != "",
		"TRUSTED_PROXIES":          os.Getenv("TRUSTED_PROXIES") != "",
		"LOG_LEVEL":                os.Getenv("LOG_LEVEL") != "",
		"ROOM_TTL_DEFAULT_SECONDS": os.Getenv("ROOM_TTL_DEFAULT_SECONDS") != "",
	}

	cfg := LoadFromEnv()

	if path := os.Getenv("RELAY_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path, envSet); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
