// Package otel provides OpenTelemetry integration for tool dispatches:
// per-invocation spans plus counters and a latency histogram.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/daiduo2/TaShan-SciSpark/tool"
)

// DispatchObserver records tool dispatch signals into OpenTelemetry. It
// implements tool.Observer.
type DispatchObserver struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewDispatchObserver creates an observer bound to the provided meter and
// tracer.
func NewDispatchObserver(meter metric.Meter, tracer trace.Tracer) (*DispatchObserver, error) {
	invocations, err := meter.Int64Counter(
		"scispark.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"scispark.tool.failures",
		metric.WithDescription("Number of failed tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"scispark.tool.latency",
		metric.WithDescription("Tool invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchObserver{
		tracer:      tracer,
		invocations: invocations,
		failures:    failures,
		latency:     latency,
	}, nil
}

// DispatchBegin starts a span for one invocation and returns the closure
// that records its outcome.
func (o *DispatchObserver) DispatchBegin(ctx context.Context, name string, mode tool.Mode) (context.Context, tool.DispatchEnd) {
	attrs := []attribute.KeyValue{
		attribute.String("scispark.tool", name),
		attribute.String("scispark.mode", string(mode)),
	}

	start := time.Now()
	spanCtx, span := o.tracer.Start(ctx, "tool:"+name, trace.WithAttributes(attrs...))
	o.invocations.Add(spanCtx, 1, metric.WithAttributes(attrs...))

	return spanCtx, func(err error) {
		elapsed := time.Since(start).Seconds()
		o.latency.Record(context.Background(), elapsed, metric.WithAttributes(attrs...))

		if err != nil {
			o.failures.Add(context.Background(), 1, metric.WithAttributes(attrs...))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
