package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "leadengine"

// StartDispatchSpan starts a span covering one dispatcher poll.
func StartDispatchSpan(ctx context.Context, batch int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.Int("dispatch.batch", batch),
		),
	)
}

// StartDeliverySpan starts a span for one message delivery.
func StartDeliverySpan(ctx context.Context, messageID, channel string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "delivery",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("message.channel", channel),
		),
	)
}
