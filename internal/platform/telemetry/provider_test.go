package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "http://192.0.2.1:4318",
		ServiceName:  "test-service",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
