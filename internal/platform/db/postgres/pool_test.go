package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            "localhost",
		Port:            15432,
		User:            "user",
		Password:        "p@ss:word",
		Name:            "licenses",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(testDatabaseConfig())
	require.NoError(t, err)

	require.EqualValues(t, 20, poolCfg.MaxConns)
	require.EqualValues(t, 5, poolCfg.MinConns)
	require.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	require.Equal(t, 10*time.Minute, poolCfg.MaxConnIdleTime)
	require.Equal(t, healthCheckPeriod, poolCfg.HealthCheckPeriod)
	require.Equal(t, "licenses", poolCfg.ConnConfig.Database)
	require.Equal(t, "p@ss:word", poolCfg.ConnConfig.Password)
	require.Equal(t, applicationName, poolCfg.ConnConfig.RuntimeParams["application_name"])
}

func TestBuildPoolConfig_MinConnsCappedByMax(t *testing.T) {
	t.Parallel()

	cfg := testDatabaseConfig()
	cfg.MaxOpenConns = 3
	cfg.MaxIdleConns = 10

	poolCfg, err := BuildPoolConfig(cfg)
	require.NoError(t, err)
	require.EqualValues(t, 3, poolCfg.MaxConns)
	require.EqualValues(t, 3, poolCfg.MinConns)
}

func TestNewPool_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	cfg := testDatabaseConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := NewPool(ctx, cfg, nil)
	require.Error(t, err)
	require.Nil(t, pool)
}
