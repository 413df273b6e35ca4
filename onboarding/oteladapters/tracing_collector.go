package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// AttrOutcome is set on every finished span and carries the onboarding status string.
const AttrOutcome = "onboarding.outcome"

// TracingCollector implements onboarding.TracingCollector with an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a tracing collector on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, onboarding.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(stringAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span.
// Spans that were not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx onboarding.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(stringAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ onboarding.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements onboarding.SpanContext around an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps an onboarding status to a span status.
// A partial batch or run did its job and is not an error span; the outcome attribute tells it apart.
func (s *OTelSpanContext) SetStatus(status string) {
	s.span.SetAttributes(attribute.String(AttrOutcome, status))

	switch status {
	case onboarding.StatusSuccess, onboarding.StatusPartial:
		s.span.SetStatus(codes.Ok, "")
	case onboarding.StatusError:
		s.span.SetStatus(codes.Error, "bulk call or run failed")
	}
}

// AddAttribute adds a string attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ onboarding.SpanContext = (*OTelSpanContext)(nil)

func stringAttributes(attrs map[string]string) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}

	return kvs
}
