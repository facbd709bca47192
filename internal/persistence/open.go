package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Open builds the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StoreBackendMemory:
		logger.Warn("using in-memory store; tickets are lost on exit")
		return NewMemory(), nil
	case config.StoreBackendFile:
		return OpenFile(cfg.Path)
	case config.StoreBackendSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	case config.StoreBackendRedis:
		return NewRedis(cfg.Redis, logger), nil
	case config.StoreBackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if pg.PoolHandle() == nil {
			return nil, errors.New("postgres backend requires POSTGRES_DSN")
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
