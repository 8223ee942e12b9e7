// Package telemetry はOpenTelemetryのトレースプロバイダを初期化する。
//
// 送信先やエクスポーターの種類は OTEL_* 環境変数（OTEL_TRACES_EXPORTER,
// OTEL_EXPORTER_OTLP_ENDPOINT 等）で指定する。無効時は何もしない。
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc はプロバイダを停止し、未送信のスパンをフラッシュする。
type ShutdownFunc func(context.Context) error

// noopShutdown は何もしないShutdownFunc。
func noopShutdown(context.Context) error { return nil }

// Setup はトレースプロバイダとプロパゲーターをグローバルに設定する。
// enabledがfalseの場合は何も設定せず、何もしないShutdownFuncを返す。
func Setup(ctx context.Context, enabled bool, serviceName string) (ShutdownFunc, error) {
	if !enabled {
		return noopShutdown, nil
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	exporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	return shutdown, nil
}
