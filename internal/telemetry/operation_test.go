package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestEmitPlanAndRunStepSuccess(t *testing.T) {
	t.Parallel()

	tracer, recorder := newTestTracer()
	op, err := EmitPlan(context.Background(), tracer, "create", "run-1", Plan{Steps: []PlannedStep{
		{ID: "workloads", Title: "creating workloads"},
		{ID: "mesh", Title: "wiring links"},
	}})
	if err != nil {
		t.Fatalf("EmitPlan() error = %v", err)
	}
	if err := op.RunStep(op.Context(), "workloads", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("RunStep() error = %v", err)
	}
	op.Annotate(attribute.Int("meshtopo.devices", 3))
	op.End(nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended span count = %d, want 2", len(spans))
	}
	root := findSpanByName(spans, "create")
	if root == nil {
		t.Fatal("missing root span")
	}
	if len(root.Events()) == 0 || root.Events()[0].Name != PlanEventName {
		t.Fatalf("root events = %+v, want plan event", root.Events())
	}
	if got := getAttr(root.Attributes(), RunIDKey); got != "run-1" {
		t.Fatalf("run attribute = %q, want run-1", got)
	}
	child := findSpanByName(spans, "workloads")
	if child == nil {
		t.Fatal("missing child step span")
	}
	if child.Parent().SpanID() != root.SpanContext().SpanID() {
		t.Fatalf("step parent span id = %s, want %s", child.Parent().SpanID(), root.SpanContext().SpanID())
	}
}

func TestRunStepFailureSetsErrorStatus(t *testing.T) {
	t.Parallel()

	tracer, recorder := newTestTracer()
	op, err := EmitPlan(context.Background(), tracer, "destroy", "run-2", Plan{Steps: []PlannedStep{{ID: "workloads"}}})
	if err != nil {
		t.Fatalf("EmitPlan() error = %v", err)
	}

	boom := errors.New("boom")
	err = op.RunStep(op.Context(), "workloads", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("RunStep() error = %v, want boom", err)
	}
	op.End(err)

	child := findSpanByName(recorder.Ended(), "workloads")
	if child == nil {
		t.Fatal("missing failed step span")
	}
	if child.Status().Code != codes.Error || child.Status().Description != "boom" {
		t.Fatalf("step status = %+v, want error boom", child.Status())
	}
}

func TestEmitPlanValidationFailure(t *testing.T) {
	t.Parallel()

	tracer, _ := newTestTracer()
	_, err := EmitPlan(context.Background(), tracer, "create", "run-3", Plan{Steps: []PlannedStep{
		{ID: "workloads"},
		{ID: "workloads"},
	}})
	if err == nil {
		t.Fatal("EmitPlan() error = nil, want duplicate id error")
	}
}

func TestNilOperationRunsStep(t *testing.T) {
	t.Parallel()

	var op *Operation
	ran := false
	if err := op.RunStep(context.Background(), "x", func(context.Context) error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("RunStep() on nil operation = %v, ran %v", err, ran)
	}
	op.End(nil)
}

func TestLogProcessor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tracer, shutdown := NewTracer(log)
	defer shutdown(context.Background())

	op, err := EmitPlan(context.Background(), tracer, "eif", "run-4", Plan{})
	if err != nil {
		t.Fatalf("EmitPlan() error = %v", err)
	}
	_ = op.RunStep(op.Context(), "forwarding", func(context.Context) error { return errors.New("no sysctl") })
	op.End(nil)

	out := buf.String()
	if !strings.Contains(out, "span=forwarding") || !strings.Contains(out, "no sysctl") {
		t.Fatalf("log output missing failed step:\n%s", out)
	}
	if !strings.Contains(out, "span=eif") {
		t.Fatalf("log output missing action span:\n%s", out)
	}
}

func newTestTracer() (trace.Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return provider.Tracer("telemetry-test"), recorder
}

func findSpanByName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func getAttr(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}
