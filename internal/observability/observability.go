// Package observability bundles the logger, importer metrics, and tracer
// handed to every module at startup.
package observability

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability carries the shared telemetry components.
type Observability struct {
	Logger  *slog.Logger
	Metrics *ImporterMetrics
	Tracer  trace.Tracer
}

// Options tunes observability construction.
type Options struct {
	Environment string
	Debug       bool
	// TracingEnabled switches between the globally registered provider and a
	// noop tracer.
	TracingEnabled bool
}

// New builds the observability bundle. Metrics registration errors panic at
// startup rather than being silently dropped.
func New(opts Options) *Observability {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("environment", opts.Environment))

	var tracer trace.Tracer
	if opts.TracingEnabled {
		tracer = otel.Tracer("combine-server")
	} else {
		tracer = noop.NewTracerProvider().Tracer("combine-server")
	}

	return &Observability{
		Logger:  logger,
		Metrics: NewImporterMetrics(),
		Tracer:  tracer,
	}
}

// NewNoOp returns a bundle suitable for unit tests.
func NewNoOp() *Observability {
	return &Observability{
		Logger:  slog.New(slog.DiscardHandler),
		Metrics: NewImporterMetrics(),
		Tracer:  noop.NewTracerProvider().Tracer("test"),
	}
}
