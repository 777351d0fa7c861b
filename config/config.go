// Package config loads the client configuration from YAML.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BrokerConfig holds connection settings for the broker.
type BrokerConfig struct {
	Address     string `yaml:"address"`
	Origin      string `yaml:"origin"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DialTimeout string `yaml:"dial_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Output string `yaml:"output"` // stderr, stdout, file, none
	File   string `yaml:"file"`
}

// OutputConfig holds result rendering settings.
type OutputConfig struct {
	Format string `yaml:"format"` // text, json
}

// FetchConfig holds defaults for the fetch subcommand.
type FetchConfig struct {
	Dir         string `yaml:"dir"`
	Workers     int    `yaml:"workers"`
	Compression string `yaml:"compression"` // none, snappy, lz4, zstd
}

// Config is the root of the client configuration.
type Config struct {
	Broker  BrokerConfig  `yaml:"broker"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
	Fetch   FetchConfig   `yaml:"fetch"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Address:     "localhost:5570",
			DialTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
		Output: OutputConfig{
			Format: "text",
		},
		Fetch: FetchConfig{
			Dir:         "./dump",
			Workers:     4,
			Compression: "none",
		},
	}
}

// Load reads YAML from r on top of the defaults. A nil or empty reader
// yields the default configuration.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a YAML file. A missing file yields
// the defaults, so running without a config file just works.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks field values that are deferred-parsed or enumerated.
func (c *Config) Validate() error {
	if _, err := c.DialTimeout(); err != nil {
		return err
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1, got %d", c.Fetch.Workers)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// DialTimeout parses the broker dial timeout.
func (c *Config) DialTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Broker.DialTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid broker.dial_timeout %q: %w", c.Broker.DialTimeout, err)
	}
	return d, nil
}
