// Package observability wires OpenTelemetry tracing for conversion runs.
// Spans are exported with the stdout exporter to a file or stderr; when
// tracing is disabled a no-op provider is installed so instrumented code
// never needs to check.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/vcf2parquet/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/vcf2parquet"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	// Output is the file receiving exported spans; empty means stderr
	Output       string
	SamplingRate float64
	PrettyPrint  bool
}

// DefaultTracingConfig returns a disabled configuration that samples
// everything once enabled
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "vcf2parquet",
		ServiceVersion: "dev",
		Environment:    getEnv("ENVIRONMENT", "development"),
		SamplingRate:   1.0,
	}
}

// Tracing owns the installed tracer provider
type Tracing struct {
	provider *sdktrace.TracerProvider
	output   io.Closer
}

// Initialize installs the global tracer provider described by config
func Initialize(config TracingConfig) (*Tracing, error) {
	if !config.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Tracing{}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if config.Output != "" {
		f, err := os.Create(config.Output) //nolint:gosec // G304: path comes from configuration
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create trace file").
				WithDetail("path", config.Output)
		}
		w, closer = f, f
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if config.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	return &Tracing{provider: tp, output: closer}, nil
}

// Tracer returns the package tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Shutdown flushes pending spans and closes the trace file
func (t *Tracing) Shutdown(ctx context.Context) error {
	var firstErr error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to shutdown tracer")
		}
	}
	if t.output != nil {
		if err := t.output.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to close trace file")
		}
	}
	return firstErr
}

// getEnv gets environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
