// Package bootstrap wires the shared runtime (database, schema, Redis) for the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedGroups upserts the built-in groups.
	SeedGroups bool
}

// InitRuntime connects to the database and Redis. A nil Redis client means caching
// and rate limiting run in their degraded modes.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if opts.SeedGroups {
		if err := seed.Groups(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in groups: %w", err)
		}
	}

	return db, rdb, nil
}
