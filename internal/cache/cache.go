// Package cache holds the small amount of shared state the dashboard keeps
// outside the database: the known owners set and admin sessions.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/pkg/logger"
)

const (
	OwnersKey          = "stockyard-owners"
	AdminSessionPrefix = "stockyard-adminsession-"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache: key not found")

// Store is a key/value store with set membership.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	Add(ctx context.Context, set string, members ...string) error
	Remove(ctx context.Context, set string, members ...string) error
	Members(ctx context.Context, set string) ([]string, error)

	// Mode is "redis" or "memory".
	Mode() string
	Close() error
}

// New returns a Redis-backed store when Redis is enabled and reachable,
// otherwise an in-process store.
func New(cfg *config.RedisConfig) Store {
	if !cfg.Enabled {
		logger.Infof("[Cache] In-memory cache initialized (Redis disabled)")
		return NewMemory()
	}

	store, err := NewRedis(cfg)
	if err != nil {
		logger.Warnf("[Cache] Redis unavailable, falling back to memory: %v", err)
		return NewMemory()
	}
	logger.Infof("[Cache] Redis cache initialized at %s", cfg.Addr)
	return store
}
