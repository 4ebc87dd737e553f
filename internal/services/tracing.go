package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
)

const tracerName = "dineops/services"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span. Caller-facing failures (validation, not found)
// are tagged but do not mark the span as errored.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	code := domainagg.CodeOf(err)
	if code != "" {
		span.SetAttributes(attribute.String("dineops.error_code", string(code)))
	}
	switch code {
	case domainagg.CodeValidation, domainagg.CodeNotFound:
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
