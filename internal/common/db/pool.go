package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/squadboard/backend/internal/common/config"
	"github.com/squadboard/backend/internal/common/constants"
	"github.com/squadboard/backend/internal/common/logger"
)

// NewPool connects to PostgreSQL, retrying while the server comes up. Callers
// own the pool and must Close it on shutdown.
func NewPool(ctx context.Context, log *logger.Logger, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolCfg.MaxConns = constants.DBPoolMaxConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if poolCfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}
	poolCfg.MaxConnLifetime = constants.DBPoolConnMaxLifetime
	poolCfg.MaxConnIdleTime = constants.DBPoolConnMaxIdleTime
	poolCfg.HealthCheckPeriod = constants.DBPoolHealthCheck
	poolCfg.ConnConfig.ConnectTimeout = constants.DBPoolConnectTimeout
	poolCfg.ConnConfig.RuntimeParams["application_name"] = constants.DBApplicationName

	var lastErr error
	for attempt := 1; attempt <= constants.DBPoolMaxAttempts; attempt++ {
		pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				log.Infof("database connection pool initialized: max=%d, min=%d", poolCfg.MaxConns, poolCfg.MinConns)
				return pool, nil
			} else {
				pool.Close()
				err = pingErr
			}
		}
		lastErr = err

		log.Warnf("failed to connect to database (attempt %d/%d): %v", attempt, constants.DBPoolMaxAttempts, err)

		if attempt == constants.DBPoolMaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect cancelled: %w", ctx.Err())
		case <-time.After(constants.DBPoolRetryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", constants.DBPoolMaxAttempts, lastErr)
}
