package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownBackend is returned for a backend name Open does not know.
var ErrUnknownBackend = errors.New("store: unknown backend")

// Config selects and configures a backend.
type Config struct {
	Backend string      `json:"backend" koanf:"backend"`
	Path    string      `json:"path" koanf:"path"` // file backend only
	Redis   RedisConfig `json:"redis" koanf:"redis"`
}

// DefaultConfig persists state to a file in the user config directory.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFile,
		Path:    DefaultPath(),
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        6379,
			PoolSize:    defaultRedisPoolSize,
			MaxRetries:  defaultRedisMaxRetries,
			DialTimeout: defaultRedisDialTimeout,
			Prefix:      defaultRedisPrefix,
		},
	}
}

// DefaultPath returns the default state file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".hooksend-state.json"
	}
	return filepath.Join(dir, "hooksend", "state.json")
}

// Validate checks the backend selection.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	case BackendRedis:
		if _, err := normalizeRedisConfig(&c.Redis); err != nil {
			return fmt.Errorf("store.redis: %w", err)
		}
	default:
		return fmt.Errorf("%w %q, must be one of: memory, file, redis", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		s, err = NewFileStore(cfg.Path, logger)
	case BackendRedis:
		s, err = NewRedisStore(ctx, &cfg.Redis)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}

	logger.Debug("Store opened",
		zap.String("backend", cfg.Backend),
		zap.Duration("elapsed", time.Since(start)))
	return s, nil
}
