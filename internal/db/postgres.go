package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loangraph/microlend/internal/config"
)

const defaultConnLifetime = 30 * time.Minute

// NewPostgresPool opens and pings a pool. component is reported as the
// application_name so the api and worker connections can be told apart.
func NewPostgresPool(ctx context.Context, cfg config.Config, component string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns > 0 {
		poolCfg.MinConns = cfg.DBMinConns
	}
	poolCfg.MaxConnLifetime = connLifetime(cfg.DBMaxConnLifetime)
	if component != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = "microlend-" + component
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func connLifetime(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultConnLifetime
	}
	return d
}
