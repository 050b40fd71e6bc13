package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"go.uber.org/zap"
)

const (
	applicationName   = "business-license-api"
	healthCheckPeriod = 30 * time.Second
	pingAttempts      = 5
	pingBackoff       = time.Second
)

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
func BuildPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(min(cfg.MaxIdleConns, int(poolCfg.MaxConns)))
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	poolCfg.HealthCheckPeriod = healthCheckPeriod

	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	return poolCfg, nil
}

// NewPool は pgxpool.Pool を生成し疎通確認を行います。
// 起動直後のデータベースを待つため、ping は一定回数まで再試行します。
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", poolCfg.MaxConns),
	)

	for i := 1; ; i++ {
		err = pool.Ping(ctx)
		if err == nil {
			log.Info("connected to postgres")
			return pool, nil
		}
		if i == pingAttempts {
			break
		}

		log.Warn("postgres not ready, retrying", zap.Int("retry", i), zap.Error(err))

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(pingBackoff):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("postgres: ping: %w", err)
}
