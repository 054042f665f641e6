// Package config loads settings for the ewt command from defaults, an optional
// YAML file, environment variables and command-line overrides, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/swfrench/ewt/internal/logging"
	"github.com/swfrench/ewt/internal/primitives"
	"github.com/swfrench/ewt/internal/token"
)

// EnvPrefix is the prefix of environment variables read by Load. For example,
// EWT_LOG_LEVEL sets log.level.
const EnvPrefix = "EWT_"

// ErrInvalidConfig indicates that a loaded value failed validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the ewt command's settings.
type Config struct {
	// Secret is the shared secret tokens are encoded and decoded under.
	Secret string `koanf:"secret"`
	// MAC names the MAC used when encoding.
	MAC string `koanf:"mac"`
	// Cipher names the cipher used when encoding.
	Cipher string `koanf:"cipher"`
	Log    Log    `koanf:"log"`
}

// Log holds logging settings.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the default settings. Secret has no default.
func Default() *Config {
	return &Config{
		MAC:    token.DefaultMAC,
		Cipher: token.DefaultCipher,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) asMap() map[string]any {
	return map[string]any{
		"secret":     c.Secret,
		"mac":        c.MAC,
		"cipher":     c.Cipher,
		"log.level":  c.Log.Level,
		"log.format": c.Log.Format,
	}
}

// mapProvider is a koanf.Provider over an already flattened map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(maps.Copy(m), "."), nil
}

// Load returns the merged settings. path names an optional YAML file and may
// be empty. overrides holds flattened keys (e.g. "log.level") that take
// precedence over every other source; empty string values are ignored.
func Load(path string, overrides map[string]string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider(Default().asMap()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	flags := make(mapProvider)
	for key, v := range overrides {
		if v != "" {
			flags[key] = v
		}
	}
	if err := k.Load(flags, nil); err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	c := new(Config)
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the algorithm names are supported and the logging
// settings are recognized. A missing secret is not an error here, since not
// every command needs one.
func (c *Config) Validate() error {
	if _, err := primitives.ParseMAC(c.MAC); err != nil {
		return fmt.Errorf("mac (error: %v): %w", err, ErrInvalidConfig)
	}
	if _, err := primitives.ParseCipher(c.Cipher); err != nil {
		return fmt.Errorf("cipher (error: %v): %w", err, ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level (error: %v): %w", err, ErrInvalidConfig)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format (error: %v): %w", err, ErrInvalidConfig)
	}
	return nil
}
