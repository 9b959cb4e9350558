package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tracelaunch/tracelaunch/internal/config"
)

func TestNewManagerDisabled(t *testing.T) {
	old := config.TracingEnabled
	config.TracingEnabled = false
	defer func() { config.TracingEnabled = old }()

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.Enabled() {
		t.Fatal("manager should be disabled")
	}

	ctx := context.Background()
	lctx, endLaunch := m.StartLaunch(ctx, 2)
	if lctx != ctx {
		t.Error("disabled manager should not modify the context")
	}
	endLaunch(1, errors.New("boom"))

	_, endSession := m.StartSession(ctx, "mysession")
	endSession(nil)

	_, endProcess := m.StartProcess(ctx, "writer")
	endProcess(0)

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown on disabled manager: %v", err)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled() {
		t.Fatal("nil manager should report disabled")
	}

	ctx := context.Background()
	_, endLaunch := m.StartLaunch(ctx, 1)
	endLaunch(0, nil)
	_, endSession := m.StartSession(ctx, "mysession")
	endSession(nil)
	_, endProcess := m.StartProcess(ctx, "writer")
	endProcess(0)
	_, endRead := m.StartTraceRead(ctx, "/tmp/t")
	endRead(0, nil)
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown on nil manager: %v", err)
	}
}

func TestManagerSpans(t *testing.T) {
	old := config.TracingEnabled
	config.TracingEnabled = true
	defer func() { config.TracingEnabled = old }()

	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if !m.Enabled() {
		t.Fatal("manager should be enabled")
	}

	ctx, endLaunch := m.StartLaunch(context.Background(), 1)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("launch span missing from context")
	}

	sctx, endSession := m.StartSession(ctx, "mysession")
	if !trace.SpanContextFromContext(sctx).IsValid() {
		t.Error("session span missing from context")
	}

	pctx, endProcess := m.StartProcess(ctx, "writer")
	if !trace.SpanContextFromContext(pctx).IsValid() {
		t.Error("process span missing from context")
	}

	rctx, endRead := m.StartTraceRead(ctx, "/tmp/traces/mysession")
	if !trace.SpanContextFromContext(rctx).IsValid() {
		t.Error("trace read span missing from context")
	}

	endRead(10, nil)
	endProcess(0)
	endSession(nil)
	endLaunch(0, nil)

	// no collector is listening; flushing may fail but must not hang
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.Shutdown(shutdownCtx)
}
