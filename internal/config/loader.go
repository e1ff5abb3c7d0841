package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/avalia/internal/domain/model"
)

const (
	envPrefix  = "AVALIA_"
	envConfig  = "AVALIA_CONFIG"
	envDotFile = "AVALIA_ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if AVALIA_CONFIG is set
//  3. env (prefix AVALIA_), including a .env file when present
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// AVALIA_REMOTE_DRIVER -> remote_driver (flat keys, underscores preserved).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv reads AVALIA_ENV_FILE, or ./.env, into the process environment
// without overriding variables that are already set.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
}

// Validate rejects settings the defaults cannot guard against.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Driver() {
	case DriverNone, DriverRedis, DriverPostgres, DriverS3:
	default:
		return fmt.Errorf("%w: unknown remote_driver %q", ErrInvalidConfig, c.RemoteDriver)
	}
	if c.RemoteTimeoutMS <= 0 {
		return fmt.Errorf("%w: remote_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.PushQueueSize <= 0 || c.PushWorkerCount <= 0 {
		return fmt.Errorf("%w: push_queue_size and push_worker_count must be positive", ErrInvalidConfig)
	}
	if len(c.DefaultAdminPassword) < model.MinPasswordLength {
		return fmt.Errorf("%w: default_admin_password must have at least %d characters", ErrInvalidConfig, model.MinPasswordLength)
	}
	return nil
}
