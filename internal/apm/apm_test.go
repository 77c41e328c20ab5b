package apm

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/orca-arbitrage-bot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders("x-team=abc, x-dataset=orca,broken,=nokey")
	assert.Equal(t, map[string]string{"x-team": "abc", "x-dataset": "orca"}, h)
	assert.Empty(t, ParseHeaders(""))
}

func TestNewTraceProvider_UnknownFallsBackToEmpty(t *testing.T) {
	tp := NewTraceProvider(logger.NewNop(), WithProvider("bogus", ExporterConfig{}, logger.NewNop()))
	_, ok := tp.(emptyTraceProvider)
	assert.True(t, ok)
	assert.NoError(t, tp.Stop())
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	id := TraceID(ctx)
	require.Len(t, id, 32)
	assert.Equal(t, span.SpanContext().TraceID().String(), id)
}

func TestTracer_UsesGlobalProvider(t *testing.T) {
	tr := NewTracer("apm-test")

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := tr.StartSpanFromContext(context.Background(), "op")
	span.Fail(errors.New("boom"))
	span.Fail(nil)
	span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
	assert.Equal(t, span.SpanContext(), tr.SpanFromContext(ctx).SpanContext())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
	assert.Len(t, spans[0].Events, 1)
}
