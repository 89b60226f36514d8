package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "meshtopo"

// LogProcessor writes every ended span to a slog logger.
type LogProcessor struct {
	log *slog.Logger
}

var _ sdktrace.SpanProcessor = (*LogProcessor)(nil)

func NewLogProcessor(log *slog.Logger) *LogProcessor {
	return &LogProcessor{log: log}
}

func (p *LogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	attrs := []any{
		"span", s.Name(),
		"duration", s.EndTime().Sub(s.StartTime()).Round(1e6).String(),
	}
	if s.Status().Code == codes.Error {
		p.log.Debug("step failed", append(attrs, "err", s.Status().Description)...)
		return
	}
	p.log.Debug("step done", attrs...)
}

func (p *LogProcessor) Shutdown(context.Context) error   { return nil }
func (p *LogProcessor) ForceFlush(context.Context) error { return nil }

// NewTracer returns a tracer whose spans are logged at debug level, plus
// the provider shutdown func.
func NewTracer(log *slog.Logger) (trace.Tracer, func(context.Context) error) {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(NewLogProcessor(log)))
	return provider.Tracer(tracerName), provider.Shutdown
}
