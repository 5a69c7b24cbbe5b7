package observe

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTracer installs an in-memory tracer provider as the global one for the
// duration of the test.
func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLog points the default logger at a buffer for the test.
func captureLog(t *testing.T, wrap func(slog.Handler) slog.Handler) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	var h slog.Handler = slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	if wrap != nil {
		h = wrap(h)
	}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	useTracer(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID without span = %q, want empty", got)
	}

	ctx1, s1 := StartSpan(context.Background(), "lookup.Ask")
	ctx2, s2 := StartSpan(context.Background(), "lookup.Ask")
	defer s1.End()
	defer s2.End()

	id1, id2 := CorrelationID(ctx1), CorrelationID(ctx2)
	if b, err := hex.DecodeString(id1); err != nil || len(b) != 16 {
		t.Errorf("CorrelationID = %q, want 32 hex characters", id1)
	}
	if id1 == id2 {
		t.Error("independent root spans share a trace ID")
	}

	child, s3 := StartSpan(ctx1, "lookup.Rebuild")
	defer s3.End()
	if CorrelationID(child) != id1 {
		t.Error("child span left its parent's trace")
	}
}

func TestEndSpan(t *testing.T) {
	exp := useTracer(t)

	_, failed := StartSpan(context.Background(), "lookup.Rebuild")
	EndSpan(failed, errors.New("duplicate signature"))
	_, clean := StartSpan(context.Background(), "lookup.Lookup")
	EndSpan(clean, nil)

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name != "lookup.Rebuild" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description != "duplicate signature" {
		t.Errorf("failed span status = %+v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Error("error event not recorded")
	}
	if spans[1].Status.Code == codes.Error {
		t.Error("clean span marked as error")
	}
}

func TestLogger(t *testing.T) {
	useTracer(t)
	buf := captureLog(t, nil)

	Logger(context.Background()).Info("no span")
	ctx, span := StartSpan(context.Background(), "lookup.Query")
	defer span.End()
	Logger(ctx).Info("in span")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want 2: %q", len(lines), buf.String())
	}
	if strings.Contains(lines[0], "trace_id") {
		t.Errorf("line without span has a trace: %s", lines[0])
	}
	want := "trace_id=" + CorrelationID(ctx)
	if !strings.Contains(lines[1], want) || !strings.Contains(lines[1], "span_id=") {
		t.Errorf("line in span = %s, want %s and a span_id", lines[1], want)
	}
}

func TestTraceHandler(t *testing.T) {
	useTracer(t)
	buf := captureLog(t, func(h slog.Handler) slog.Handler { return NewTraceHandler(h) })

	ctx, span := StartSpan(context.Background(), "app.Reload")
	defer span.End()

	log := slog.Default().With("component", "reload").WithGroup("g")
	log.InfoContext(ctx, "with ctx")
	log.Info("without ctx")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("logged %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "component=reload") {
		t.Errorf("WithAttrs lost: %s", lines[0])
	}
	if !strings.Contains(lines[0], CorrelationID(ctx)) {
		t.Errorf("line logged with span context has no trace: %s", lines[0])
	}
	if strings.Contains(lines[1], "trace_id") {
		t.Errorf("line logged without context has a trace: %s", lines[1])
	}
}
