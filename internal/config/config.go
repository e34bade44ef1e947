// Package config loads taylor-server settings from defaults, an optional
// YAML file and TAYLOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TAYLOR"

// Config represents the complete configuration for taylor-server
type Config struct {
	Port         int           `mapstructure:"port"`
	LogLevel     string        `mapstructure:"log_level"`
	MaxOrder     int           `mapstructure:"max_order"`
	MaxExponent  int           `mapstructure:"max_exponent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SetDefaults registers every key so environment overrides are picked up by
// Unmarshal even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("max_order", 16)
	v.SetDefault("max_exponent", 256)
	v.SetDefault("max_body_bytes", 1<<20)
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", 15*time.Second)
}

// Load reads path when it is non-empty and returns the validated result.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 1..65535, got %d", c.Port))
	}
	if c.MaxOrder < 1 {
		errs = append(errs, fmt.Errorf("max_order must be positive, got %d", c.MaxOrder))
	}
	if c.MaxExponent < 1 {
		errs = append(errs, fmt.Errorf("max_exponent must be positive, got %d", c.MaxExponent))
	}
	if c.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
