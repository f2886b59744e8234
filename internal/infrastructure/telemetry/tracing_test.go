package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := useRecorder(t)
	shop := uuid.New()

	ctx, span := telemetry.StartSpan(context.Background(), "crm.ingest",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, shop),
		telemetry.WithAttribute(telemetry.SpanAttrCount, 3),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	telemetry.SetAttributes(span, "crm.stored", 2, "ignored")
	telemetry.AddEvent(span, "media_archived", "bytes", int64(512))
	traceID := telemetry.GetTraceID(ctx)
	telemetry.SetOK(span)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "crm.ingest", got.Name())
	assert.Equal(t, trace.SpanKindServer, got.SpanKind())
	assert.Equal(t, codes.Ok, got.Status().Code)
	assert.Equal(t, got.SpanContext().TraceID().String(), traceID)
	assert.Contains(t, got.Attributes(), attribute.String(telemetry.SpanAttrTenantID, shop.String()))
	assert.Contains(t, got.Attributes(), attribute.Int(telemetry.SpanAttrCount, 3))
	assert.Contains(t, got.Attributes(), attribute.Int("crm.stored", 2))
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "media_archived", got.Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "projection.rebuild")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("checkpoint write failed"))
	span.End()

	got := recorder.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "checkpoint write failed", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}
