package apm

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is the subset of trace.Span the pipeline records on.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	SetStatus(code codes.Code, description string)
	RecordError(err error, options ...trace.EventOption)
	// Fail records err and marks the span as errored.
	Fail(err error)
	SpanContext() trace.SpanContext
	End(options ...trace.SpanEndOption)
}

type otelSpan struct {
	span trace.Span
}

// NewSpan wraps an OpenTelemetry span.
func NewSpan(span trace.Span) Span {
	return otelSpan{span: span}
}

func (s otelSpan) SetAttributes(values ...attribute.KeyValue) {
	s.span.SetAttributes(values...)
}

func (s otelSpan) AddEvent(name string, options ...trace.EventOption) {
	s.span.AddEvent(name, options...)
}

func (s otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s otelSpan) RecordError(err error, options ...trace.EventOption) {
	s.span.RecordError(err, options...)
}

func (s otelSpan) Fail(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}

func (s otelSpan) End(options ...trace.SpanEndOption) {
	s.span.End(options...)
}
