package telemetry

import (
	"context"
	"fmt"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc は保留中のスパンを送信し、プロバイダーを停止します。
type ShutdownFunc func(context.Context) error

// Setup は OTLP/HTTP によるトレース送信を初期化します。
// telemetry.otlp_endpoint が空の場合は何も登録せず、no-op の ShutdownFunc を返します。
func Setup(ctx context.Context, cfg config.TelemetryConfig) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	if cfg.OTLPEndpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	if err != nil {
		return noop, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return noop, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
