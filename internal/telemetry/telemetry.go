// Package telemetry wires up the process-wide OpenTelemetry tracer and
// meter providers. Every span created via otel.Tracer(...) in
// internal/service is a no-op until Setup installs real providers;
// cmd/forky calls Setup once at startup (with no writers, so it installs
// none), mirroring the lazy-tracer fallback pattern (tracer() falling
// back to otel.Tracer(name) when unset) seen in
// other_examples/5ed66473_Sumatoshi-tech-codefang__internal-framework-runner.go.go.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls where spans and metrics are written. A nil Writer
// disables the corresponding provider (leaving the global no-op in place).
type Config struct {
	TraceWriter  io.Writer
	MetricWriter io.Writer
	ServiceName  string
}

// Shutdown flushes and stops whatever providers Setup installed.
type Shutdown func(context.Context) error

// Setup installs a TracerProvider and/or MeterProvider whose stdout-format
// exporters write to cfg's writers (only for the writers that are set),
// returning a Shutdown to call before process exit.
func Setup(ctx context.Context, cfg Config) (Shutdown, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "forky"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	var shutdowns []Shutdown

	if cfg.TraceWriter != nil {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.TraceWriter), stdouttrace.WithoutTimestamps())
		if err != nil {
			return nil, fmt.Errorf("telemetry: building trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.MetricWriter != nil {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.MetricWriter))
		if err != nil {
			return nil, fmt.Errorf("telemetry: building metric exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exp)),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return func(ctx context.Context) error {
		var firstErr error
		for _, sd := range shutdowns {
			if err := sd(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}
