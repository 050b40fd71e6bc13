package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	memorycache "github.com/ogurasousui/business-license-api/internal/adapters/cache/memory"
	rediscache "github.com/ogurasousui/business-license-api/internal/adapters/cache/redis"
	httphandler "github.com/ogurasousui/business-license-api/internal/adapters/http/handler"
	"github.com/ogurasousui/business-license-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/ogurasousui/business-license-api/internal/platform/config"
	pg "github.com/ogurasousui/business-license-api/internal/platform/db/postgres"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"github.com/ogurasousui/business-license-api/internal/platform/ratelimit"
	platformredis "github.com/ogurasousui/business-license-api/internal/platform/redis"
	"github.com/ogurasousui/business-license-api/internal/platform/server"
	"github.com/ogurasousui/business-license-api/internal/platform/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	cache, closeCache := newCache(ctx, cfg.Cache, logger)
	defer closeCache()

	repo := postgres.NewLicenseRepository(dbPool)
	svc := license.NewService(repo, cache, pg.NewTransactionManager(dbPool))
	limiter := ratelimit.New(cfg.RateLimit)

	grpcServer := server.New(cfg.Server.ListenAddr, svc, server.Options(logger, limiter)...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.Server.ListenAddr))
		return grpcServer.Run(gctx)
	})

	if cfg.Server.HTTPAddr != "" {
		httpServer := &http.Server{
			Addr: cfg.Server.HTTPAddr,
			Handler: httphandler.NewRouter(httphandler.RouterConfig{
				Service:        svc,
				Logger:         logger,
				Limiter:        limiter,
				Readiness:      dbPool,
				RequestTimeout: cfg.Server.RequestTimeout,
				AllowedOrigins: cfg.CORS.AllowedOrigins,
			}),
			ReadHeaderTimeout: readHeaderTimeout,
		}

		g.Go(func() error {
			logger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown HTTP: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// newCache は設定に応じたキャッシュと、その解放関数を返します。
// Redis に接続できない場合はキャッシュなし (もしくはメモリキャッシュ) で起動を続けます。
func newCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (license.Cache, func()) {
	noop := func() {}

	if cfg.RedisAddr != "" {
		client, err := platformredis.NewClient(ctx, cfg, logger)
		if err == nil {
			logger.Info("license cache enabled", zap.String("backend", "redis"), zap.Duration("ttl", cfg.TTL))
			return rediscache.NewLicenseCache(client, cfg.TTL, cfg.OpTimeout, cfg.InvalidationHold, logger), func() {
				if err := client.Close(); err != nil {
					logger.Warn("failed to close redis client", zap.Error(err))
				}
			}
		}
		logger.Error("redis unavailable, continuing without it", zap.Error(err))
	}

	if cfg.MemoryFallback {
		logger.Warn("memory cache invalidation is local to this process; run a single instance")
		logger.Info("license cache enabled", zap.String("backend", "memory"), zap.Duration("ttl", cfg.TTL))
		return memorycache.NewLicenseCache(cfg.TTL, cfg.InvalidationHold), noop
	}

	logger.Info("license cache disabled")
	return license.NopCache{}, noop
}
