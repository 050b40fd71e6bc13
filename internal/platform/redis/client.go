package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	pingAttempts = 3
	pingBackoff  = time.Second
)

// NewClient は Redis クライアントを生成し、疎通確認を行います。
// 疎通できない場合はクライアントを閉じてエラーを返します。
func NewClient(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*goredis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis: cache.redis_addr must be set")
	}

	log := logger.With(
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize),
	)

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})

	var err error
	for i := 0; i < pingAttempts; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			log.Info("connected to redis")
			return client, nil
		}

		log.Warn("redis not ready, retrying", zap.Int("retry", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("redis: ping: %w", ctx.Err())
		case <-time.After(pingBackoff):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis: ping: %w", err)
}
