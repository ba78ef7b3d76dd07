package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expscan/expscan/internal/common"
)

// Open creates a pgx pool from the database config and verifies it with a
// ping before handing it out.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("repository.db.connecting")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("repository.db.bad_dsn", "error", err)
		return nil, common.WrapError(err, "parse database config")
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "expscan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("repository.db.connect_failed", "error", err)
		return nil, common.WrapError(err, "connect to database")
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		logger.Error("repository.db.ping_failed", "error", err)
		return nil, common.WrapError(err, "ping database")
	}

	logger.Info("repository.db.connected")
	return pool, nil
}
