package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ogurasousui/business-license-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/ogurasousui/business-license-api/internal/platform/config"
	pg "github.com/ogurasousui/business-license-api/internal/platform/db/postgres"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(config.LogConfig{Level: cfg.Log.Level, Component: "seed"})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database pool", zap.Error(err))
	}
	defer dbPool.Close()

	svc := license.NewService(postgres.NewLicenseRepository(dbPool), nil, pg.NewTransactionManager(dbPool))

	created, skipped, err := seed(ctx, svc, sampleLicenses())
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed completed", zap.Int("created", created), zap.Int("skipped", skipped))
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

// seed は入力を順に作成します。許可番号が既に存在するものはスキップします。
func seed(ctx context.Context, svc license.UseCase, inputs []license.CreateLicenseInput) (int, int, error) {
	var created, skipped int
	for _, in := range inputs {
		if _, err := svc.CreateLicense(ctx, in); err != nil {
			if errors.Is(err, license.ErrLicenseNumberAlreadyExists) {
				skipped++
				continue
			}
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}

func sampleLicenses() []license.CreateLicenseInput {
	date := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	str := func(s string) *string { return &s }
	expired := license.StatusExpired
	notRenewable := false

	return []license.CreateLicenseInput{
		{
			LicenseNumber:    "ABC123",
			BusinessName:     "Keith's Coffee",
			BusinessType:     license.BusinessTypeFoodService,
			IssuedDate:       date(2024, time.January, 1),
			ExpirationDate:   date(2027, time.January, 1),
			IssuingAuthority: "Seattle Department of Finance",
			StreetAddress:    "123 Main St",
			City:             "Seattle",
			State:            "WA",
			ZipCode:          "98101",
			ContactPerson:    str("Keith"),
			Phone:            str("555-1234"),
		},
		{
			LicenseNumber:    "XYZ456",
			BusinessName:     "Jane's Bakery",
			BusinessType:     license.BusinessTypeRetail,
			IssuedDate:       date(2022, time.March, 15),
			ExpirationDate:   date(2024, time.March, 15),
			IssuingAuthority: "Portland Revenue Division",
			StreetAddress:    "45 Alder St",
			City:             "Portland",
			State:            "OR",
			ZipCode:          "97204",
			Status:           &expired,
			Email:            str("jane@example.com"),
		},
		{
			LicenseNumber:    "PRO-2024-0007",
			BusinessName:     "Rainier Structural Engineering",
			BusinessType:     license.BusinessTypeProfessional,
			IssuedDate:       date(2024, time.June, 1),
			ExpirationDate:   date(2026, time.June, 1),
			IssuingAuthority: "Washington State Department of Licensing",
			StreetAddress:    "900 4th Ave",
			City:             "Seattle",
			State:            "WA",
			ZipCode:          "98164",
			Description:      str("Structural engineering consultancy"),
		},
		{
			LicenseNumber:    "TRD-88",
			BusinessName:     "Cascade Plumbing",
			BusinessType:     license.BusinessTypeTrade,
			IssuedDate:       date(2025, time.February, 10),
			ExpirationDate:   date(2026, time.February, 10),
			IssuingAuthority: "Tacoma Permits Office",
			StreetAddress:    "12 Pacific Ave",
			City:             "Tacoma",
			State:            "WA",
			ZipCode:          "98402",
			Conditions:       str("Bonded and insured"),
			IsRenewable:      &notRenewable,
		},
	}
}
