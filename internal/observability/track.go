package observability

import (
	"context"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Track opens a span for one service operation and returns the func that closes it and
// counts the outcome. Usage:
//
//	ctx, done := observability.Track(ctx, s.metrics, "sale_order", "create")
//	defer func() { done(err) }()
func Track(ctx context.Context, m *metrics.Metrics, entity, op string) (context.Context, func(error)) {
	ctx, span := Tracer().Start(ctx, entity+"."+op)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("error.kind", string(apperr.KindOf(err))))
		}
		span.End()
		m.Operation(entity, op, metrics.Outcome(err))
	}
}
