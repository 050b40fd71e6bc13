package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [up|down|drop|version]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(config.LogConfig{Level: cfg.Log.Level, Component: "migrate"})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := runMigration(logger, action, *migrationsDir, cfg.Database.DSN()); err != nil {
		logger.Fatal("migration failed", zap.String("action", action), zap.Error(err))
	}

	logger.Info("migration completed", zap.String("action", action))
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

func sourceURL(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	return "file://" + filepath.ToSlash(absDir), nil
}

func runMigration(logger *zap.Logger, action, dir, dsn string) error {
	src, err := sourceURL(dir)
	if err != nil {
		return err
	}

	m, err := migrate.New(src, dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrate instance", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
		}
	}()

	switch action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Down())
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
