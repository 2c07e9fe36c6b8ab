// Package telemetry provides OpenTelemetry tracing for the ticket bot.
//
// Tracing is disabled by default and then costs nothing: a no-op provider
// is installed. When enabled, spans are exported by stdouttrace, pretty
// printed to stdout in dev mode or compact to stderr otherwise.
//
//	TICKETBOT_OTEL_ENABLED=true   enable tracing
//	TICKETBOT_OTEL_STDOUT=true    pretty-print spans to stdout
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/marti95432/discordbot"

// Options configures Init.
type Options struct {
	Enabled     bool
	Stdout      bool
	ServiceName string
	Version     string
	Writer      io.Writer // overrides the exporter destination
}

// ShutdownFunc flushes pending spans and releases the provider.
type ShutdownFunc func(context.Context) error

// Init installs the global tracer provider.
func Init(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(opts.Version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	w := opts.Writer
	exporterOpts := []stdouttrace.Option{}
	if opts.Stdout {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
		if w == nil {
			w = os.Stdout
		}
	}
	if w == nil {
		w = os.Stderr
	}
	exporterOpts = append(exporterOpts, stdouttrace.WithWriter(w))

	exp, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}
