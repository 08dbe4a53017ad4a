package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/secret"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "CONTACTS_"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("contactsctl: invalid config")

// Config holds the settings shared by every command.
//
// Sources are applied in order, later ones winning: defaults, the TOML file,
// CONTACTS_* environment variables, then command-line flags.
type Config struct {
	URL         string        `toml:"url" env:"URL"`
	Timeout     time.Duration `toml:"timeout" env:"TIMEOUT"`
	Concurrency int           `toml:"concurrency" env:"CONCURRENCY"`
	MaxFailures int           `toml:"max_failures" env:"MAX_FAILURES"`
	LogLevel    string        `toml:"log_level" env:"LOG_LEVEL"`
	Listen      string        `toml:"listen" env:"LISTEN"`
	Output      string        `toml:"output" env:"OUTPUT"`

	// InFlightLimit is the number of loading invocations at which serve
	// reports itself degraded.
	InFlightLimit int `toml:"in_flight_limit" env:"IN_FLIGHT_LIMIT"`

	// Token is sent to the contacts API as a bearer credential. APIKeys guard
	// the mutation endpoints of serve. Both accept ${VAR} and secretref: values.
	Token   string   `toml:"token" env:"TOKEN"`
	APIKeys []string `toml:"api_keys" env:"API_KEYS"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		URL:         contacts.DefaultBaseURL,
		Timeout:     contacts.DefaultTimeout,
		Concurrency: 4,
		MaxFailures: 5,
		LogLevel:    "warn",
		Listen:      "127.0.0.1:7778",
		Output:      "text",

		InFlightLimit: 100,
	}
}

// LoadConfig builds a Config from defaults, the optional TOML file at path and
// the environment. An empty path falls back to $CONTACTS_CONFIG; a missing
// file named that way is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Output = strings.ToLower(strings.TrimSpace(c.Output))
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validOutputs = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url is empty", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	case c.MaxFailures < 1:
		return fmt.Errorf("%w: max_failures must be at least 1, got %d", ErrInvalidConfig, c.MaxFailures)
	case !validLogLevels[c.LogLevel]:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	case !validOutputs[c.Output]:
		return fmt.Errorf("%w: output %q", ErrInvalidConfig, c.Output)
	case c.InFlightLimit < 1:
		return fmt.Errorf("%w: in_flight_limit must be at least 1, got %d", ErrInvalidConfig, c.InFlightLimit)
	}
	return nil
}

// resolveSecrets replaces Token and APIKeys with their resolved values.
func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	token, err := r.ResolveValue(ctx, c.Token)
	if err != nil {
		return fmt.Errorf("resolve token: %w", err)
	}
	keys, err := r.ResolveSlice(ctx, c.APIKeys)
	if err != nil {
		return fmt.Errorf("resolve api_keys: %w", err)
	}
	c.Token, c.APIKeys = token, keys
	return nil
}
