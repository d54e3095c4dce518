// Package config loads service configuration from YAML.
//
// ${VAR} references are expanded from the environment before parsing, then
// the result is layered over Defaults and validated:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    return err
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/dispatch/pkg/logger"
	"github.com/dmitrymomot/dispatch/pkg/redis"
)

var (
	ErrEmptyPath        = errors.New("config: empty path")
	ErrParse            = errors.New("config: failed to parse YAML")
	ErrValidationFailed = errors.New("config: validation failed")
)

// Config is the service configuration.
type Config struct {
	Address         string              `yaml:"address" validate:"required"`
	Environment     string              `yaml:"environment" validate:"oneof=development production test"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout" validate:"gt=0"`
	SlowThreshold   time.Duration       `yaml:"slow_threshold" validate:"gt=0"`
	BodyLimit       int64               `yaml:"body_limit" validate:"gt=0"`
	ServerTiming    bool                `yaml:"server_timing"`
	Log             Log                 `yaml:"log"`
	Sentry          logger.SentryConfig `yaml:"sentry"`
	Redis           redis.Config        `yaml:"redis"`
	RateLimit       RateLimit           `yaml:"rate_limit"`
}

// Log configures pkg/logger.
type Log struct {
	Level     string `yaml:"level" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" validate:"oneof=json text"`
	Component string `yaml:"component"`
}

// RateLimit configures the rate limiting middleware. Zero requests disables it.
type RateLimit struct {
	Requests int64         `yaml:"requests" validate:"gte=0"`
	Window   time.Duration `yaml:"window" validate:"required_with=Requests"`
}

// Development reports whether error details may be exposed to clients.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// Defaults returns the configuration used for keys absent from the file.
func Defaults() *Config {
	return &Config{
		Address:         ":8080",
		Environment:     "production",
		ShutdownTimeout: 30 * time.Second,
		SlowThreshold:   300 * time.Millisecond,
		BodyLimit:       10 << 20,
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimit{
			Window: time.Minute,
		},
	}
}

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands, decodes and validates YAML data.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.Join(ErrParse, err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return nil, errors.Join(ErrValidationFailed, err)
	}
	return cfg, nil
}
