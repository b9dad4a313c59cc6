// Package observability emits span and metric telemetry for the gateway as
// structured slog lines. Spans wrap the two hot paths, inbound HTTP requests
// and upstream model invocations, and carry the elapsed duration in
// milliseconds so log tooling can aggregate latency without a metrics
// backend.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

// sink is the installed telemetry destination. Swapped atomically so the
// request path never takes a lock.
type sink struct {
	logger *slog.Logger
}

var activeSink atomic.Pointer[sink]

func telemetryLogger() *slog.Logger {
	s := activeSink.Load()
	if s == nil {
		return nil
	}
	return s.logger
}

// Setup installs the slog-backed telemetry sink. When disabled, spans and
// metrics become no-ops while the caller-facing API stays in place.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		activeSink.Store(&sink{})
		if logger != nil {
			logger.InfoContext(ctx, "[OBSERVABILITY] telemetry disabled")
		}
		return func(context.Context) error { return nil }, nil
	}

	activeSink.Store(&sink{logger: logger})
	if logger != nil {
		logger.InfoContext(ctx, "[OBSERVABILITY] telemetry sink installed")
	}
	return func(context.Context) error {
		activeSink.Store(&sink{})
		return nil
	}, nil
}

// StartSpan opens a span around one unit of gateway work and returns the
// closer that records its outcome. The component names the subsystem
// ("http.server", "ai.run") and the operation names the route or model.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger := telemetryLogger()
	if logger == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "span opened",
		slog.String("span", component),
		slog.String("target", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}

		attrs := []slog.Attr{
			slog.String("span", component),
			slog.String("target", operation),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		logger.LogAttrs(ctx, level, "span closed", attrs...)
	}
}

// RecordMetric emits a best-effort metric datapoint via the installed sink.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	logger := telemetryLogger()
	if logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "metric recorded", attrs...)
}
