// Package config holds the session manager configuration: scan cadence,
// bootstrap discovery, connect deadline and logging.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds session manager configuration. Zero values are filled in
// from the default tags by DefaultConfig and Load.
type Config struct {
	// LogLevel is the logrus level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level" default:"info"`

	// ScanInterval is the discovery poll cadence.
	ScanInterval time.Duration `yaml:"scan_interval" default:"200ms"`

	// BootstrapScanTimeout is the duration of the implicit discovery run
	// when Connect is called with an empty registry.
	BootstrapScanTimeout time.Duration `yaml:"bootstrap_scan_timeout" default:"1s"`

	// ConnectTimeout bounds the transport-level connect. Zero means no
	// deadline beyond the caller's context.
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
}

// UnmarshalYAML accepts Go duration strings ("200ms", "5s") for the
// interval fields. Absent fields leave the current values untouched so
// defaults survive a partial config file.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		LogLevel             string `yaml:"log_level"`
		ScanInterval         string `yaml:"scan_interval"`
		BootstrapScanTimeout string `yaml:"bootstrap_scan_timeout"`
		ConnectTimeout       string `yaml:"connect_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	for _, f := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"scan_interval", raw.ScanInterval, &c.ScanInterval},
		{"bootstrap_scan_timeout", raw.BootstrapScanTimeout, &c.BootstrapScanTimeout},
		{"connect_timeout", raw.ConnectTimeout, &c.ConnectTimeout},
	} {
		if f.in == "" {
			continue
		}
		d, err := time.ParseDuration(f.in)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.in, err)
		}
		*f.out = d
	}
	return nil
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

// ParseLevel converts LogLevel to a logrus level, defaulting to info on
// unknown names.
func (c *Config) ParseLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.ParseLevel())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
