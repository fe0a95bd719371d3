package client

import (
	"context"

	"ex-otogi-gateway/pkg/gateway"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ex-otogi-gateway/pkg/client"

// startFrameSpan opens the span covering one routed frame.
func startFrameSpan(ctx context.Context, tracer trace.Tracer, frame gateway.Frame) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gateway.dispatch "+frame.Tag,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("gateway.tag", frame.Tag),
			attribute.Int("gateway.shard_id", frame.ShardID),
			attribute.Int64("gateway.sequence", frame.Sequence),
		),
	)
}

// endFrameSpan records the frame outcome and closes the span.
func endFrameSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("gateway.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
