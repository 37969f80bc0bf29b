package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the complete diagweb configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Exec    ExecConfig    `yaml:"exec"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Listen          string `yaml:"listen"`
	ReadTimeoutSec  int    `yaml:"readTimeoutSec"`
	WriteTimeoutSec int    `yaml:"writeTimeoutSec"`
	IdleTimeoutSec  int    `yaml:"idleTimeoutSec"`
}

// CatalogConfig selects the command catalog. An empty path uses the
// catalog compiled into the binary.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

type ExecConfig struct {
	TimeoutSec     int `yaml:"timeoutSec"`
	MaxOutputBytes int `yaml:"maxOutputBytes"`
}

// LogConfig enables a rotating log file in addition to stderr.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DIAGWEB_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:5000",
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 0, // derived from exec timeout
			IdleTimeoutSec:  120,
		},
		Exec: ExecConfig{
			TimeoutSec:     60,
			MaxOutputBytes: 1 << 20,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DIAGWEB_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("DIAGWEB_CATALOG"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("DIAGWEB_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("DIAGWEB_EXEC_TIMEOUT"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DIAGWEB_EXEC_TIMEOUT: %w", err)
		}
		cfg.Exec.TimeoutSec = sec
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must be set")
	}
	if c.Exec.TimeoutSec <= 0 || c.Exec.TimeoutSec > 3600 {
		return fmt.Errorf("exec.timeoutSec %d outside range [1, 3600]", c.Exec.TimeoutSec)
	}
	if c.Exec.MaxOutputBytes <= 0 {
		return fmt.Errorf("exec.maxOutputBytes must be positive")
	}
	if c.Server.ReadTimeoutSec < 0 || c.Server.WriteTimeoutSec < 0 || c.Server.IdleTimeoutSec < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.Exec.TimeoutSec) * time.Second
}

// WriteTimeout leaves room for the longest execution plus encoding.
func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSec > 0 {
		return time.Duration(c.Server.WriteTimeoutSec) * time.Second
	}
	return c.ExecTimeout() + 10*time.Second
}
