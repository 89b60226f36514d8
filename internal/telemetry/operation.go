// Package telemetry traces driver actions as one span per action with a
// child span per step.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	PlanEventName  = "meshtopo.plan"
	PlanVersion    = "1"
	PlanVersionKey = "meshtopo.plan.version"
	PlanJSONKey    = "meshtopo.plan.json"
	RunIDKey       = "meshtopo.run"
	defaultAction  = "action"
)

type PlannedStep struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// Operation is the root span of one action.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// EmitPlan starts the action span and records its planned steps.
func EmitPlan(ctx context.Context, tracer trace.Tracer, action, runID string, plan Plan) (*Operation, error) {
	if tracer == nil {
		return nil, fmt.Errorf("emit telemetry plan: tracer is required")
	}
	if err := validatePlan(plan); err != nil {
		return nil, fmt.Errorf("emit telemetry plan: %w", err)
	}

	action = strings.TrimSpace(action)
	if action == "" {
		action = defaultAction
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("emit telemetry plan: marshal plan: %w", err)
	}

	attrs := []attribute.KeyValue{
		attribute.String(PlanVersionKey, PlanVersion),
		attribute.String(PlanJSONKey, string(planJSON)),
	}
	spanCtx, span := tracer.Start(ctx, action, trace.WithAttributes(append(attrs, attribute.String(RunIDKey, runID))...))
	span.AddEvent(PlanEventName, trace.WithAttributes(attrs...))

	return &Operation{ctx: spanCtx, tracer: tracer, span: span}, nil
}

func (o *Operation) Context() context.Context {
	if o == nil {
		return context.Background()
	}
	return o.ctx
}

// RunStep runs fn inside a child span named id.
func (o *Operation) RunStep(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	stepID := strings.TrimSpace(id)
	if stepID == "" {
		return fmt.Errorf("run telemetry step: step id is required")
	}
	if o == nil || o.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = o.ctx
	}

	stepCtx, span := o.tracer.Start(ctx, stepID)
	defer span.End()

	if err := fn(stepCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

// Annotate attaches attributes to the action span.
func (o *Operation) Annotate(attrs ...attribute.KeyValue) {
	if o == nil || o.span == nil {
		return
	}
	o.span.SetAttributes(attrs...)
}

func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.span.End()
}

func validatePlan(plan Plan) error {
	seen := make(map[string]struct{}, len(plan.Steps))
	for i, step := range plan.Steps {
		id := strings.TrimSpace(step.ID)
		if id == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate step id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
