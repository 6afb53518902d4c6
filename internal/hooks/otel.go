package hooks

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/typegraph/tgcore/pipeline")

	opCounter  metric.Int64Counter
	errCounter metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/typegraph/tgcore/pipeline")
	opCounter, _ = meter.Int64Counter("tgcore.operations",
		metric.WithDescription("count of write-pipeline operations by kind and outcome"))
	errCounter, _ = meter.Int64Counter("tgcore.operation_errors",
		metric.WithDescription("count of write-pipeline operations that returned an error"))
}

// spanTracker correlates an OperationContext's OperationID with the span
// opened for it, since OnOperationStart/OnOperationEnd are two separate
// callback invocations rather than one wrapping call.
type spanTracker struct {
	spans map[string]trace.Span
}

// NewOtelHooks returns a Hooks value that emits one OTel span per
// operation plus create/update/delete/error counters, without touching
// control flow — it composes with, rather than replaces, any
// caller-registered hooks (§4.F.1: hooks are advisory subscribers).
func NewOtelHooks() Hooks {
	tracker := &spanTracker{spans: map[string]trace.Span{}}

	return Hooks{
		OnOperationStart: func(ctx context.Context, opctx OperationContext) {
			_, span := tracer.Start(ctx, "tgcore."+opctx.Operation,
				trace.WithAttributes(
					attribute.String("tgcore.entity", opctx.Entity),
					attribute.String("tgcore.kind", opctx.Kind),
					attribute.String("tgcore.graph_id", opctx.GraphID),
				))
			tracker.spans[opctx.OperationID] = span
		},
		OnOperationEnd: func(ctx context.Context, endctx EndContext) {
			opCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tgcore.operation", endctx.Operation),
				attribute.String("tgcore.entity", endctx.Entity),
			))
			span, ok := tracker.spans[endctx.OperationID]
			if !ok {
				return
			}
			delete(tracker.spans, endctx.OperationID)
			if endctx.Err != nil {
				span.RecordError(endctx.Err)
				span.SetStatus(codes.Error, endctx.Err.Error())
			}
			span.End()
		},
		OnError: func(ctx context.Context, opctx OperationContext, err error) {
			errCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tgcore.operation", opctx.Operation),
				attribute.String("tgcore.kind", opctx.Kind),
			))
		},
	}
}
