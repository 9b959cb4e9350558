// Package tracing reports the launch lifecycle itself as OpenTelemetry
// spans: one root span per launch run, with child spans for the tracing
// session and each launched process. This is self-observability of the
// tool, separate from the kernel/userspace trace data it collects.
package tracing

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracelaunch/tracelaunch/internal/config"
)

type Manager struct {
	enabled bool
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
}

// NewManager builds the OTLP pipeline when tracing is enabled in config;
// otherwise every method is a no-op.
func NewManager() (*Manager, error) {
	if !config.TracingEnabled {
		return &Manager{enabled: false}, nil
	}

	endpoint := config.OTLPEndpoint
	if endpoint == "" {
		endpoint = config.DefaultOTLPEndpoint
	}

	ctx := context.Background()
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("tracelaunch"),
			semconv.ServiceVersionKey.String(config.GetVersion()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(config.TracingSampleRate))),
	)

	otel.SetTracerProvider(tp)

	return &Manager{
		enabled: true,
		tp:      tp,
		tracer:  tp.Tracer("tracelaunch"),
	}, nil
}

// Methods tolerate a nil receiver so callers can hold a manager that was
// never constructed (tracing disabled or setup failed) without guarding
// every call site.
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// StartLaunch opens the root span for one launch run. The returned end
// function records the overall exit code and closes the span.
func (m *Manager) StartLaunch(ctx context.Context, processCount int) (context.Context, func(exitCode int, err error)) {
	if !m.Enabled() {
		return ctx, func(int, error) {}
	}
	ctx, span := m.tracer.Start(ctx, "launch",
		trace.WithAttributes(attribute.Int("launch.process_count", processCount)))
	return ctx, func(exitCode int, err error) {
		span.SetAttributes(attribute.Int("launch.exit_code", exitCode))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if exitCode != 0 {
			span.SetStatus(codes.Error, "exit code "+strconv.Itoa(exitCode))
		}
		span.End()
	}
}

// StartSession opens a child span covering a tracing session from setup to
// teardown. The resolved session name is also recorded on the enclosing
// launch span, since it is only known once the trace action executes.
func (m *Manager) StartSession(ctx context.Context, sessionName string) (context.Context, func(err error)) {
	if !m.Enabled() {
		return ctx, func(error) {}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.name", sessionName))
	ctx, span := m.tracer.Start(ctx, "tracing_session",
		trace.WithAttributes(attribute.String("session.name", sessionName)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartProcess opens a child span covering one launched process from start
// to exit.
func (m *Manager) StartProcess(ctx context.Context, name string) (context.Context, func(exitCode int)) {
	if !m.Enabled() {
		return ctx, func(int) {}
	}
	ctx, span := m.tracer.Start(ctx, "process",
		trace.WithAttributes(attribute.String("process.name", name)))
	return ctx, func(exitCode int) {
		span.SetAttributes(attribute.Int("process.exit_code", exitCode))
		if exitCode != 0 {
			span.SetStatus(codes.Error, "exit code "+strconv.Itoa(exitCode))
		}
		span.End()
	}
}

// StartTraceRead opens a span covering reading a trace directory back.
func (m *Manager) StartTraceRead(ctx context.Context, traceDir string) (context.Context, func(eventCount int, err error)) {
	if !m.Enabled() {
		return ctx, func(int, error) {}
	}
	ctx, span := m.tracer.Start(ctx, "trace_read",
		trace.WithAttributes(attribute.String("trace.directory", traceDir)))
	return ctx, func(eventCount int, err error) {
		span.SetAttributes(attribute.Int("trace.event_count", eventCount))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Shutdown flushes pending spans.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.Enabled() || m.tp == nil {
		return nil
	}
	return m.tp.Shutdown(ctx)
}
