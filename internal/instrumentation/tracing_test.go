package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartStageSpan(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := StartStageSpan(context.Background(), StageQuery, "run-1")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	SetSpanError(span, errors.New("connection refused"))
	span.End()

	_, span = StartStageSpan(context.Background(), StageArtifact, "run-1")
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "export.query", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	assert.Equal(t, "export.artifact", ended[1].Name())
	assert.Equal(t, trace.SpanKindInternal, ended[1].SpanKind())
	assert.Equal(t, codes.Ok, ended[1].Status().Code)
}

func TestStartToolSpan(t *testing.T) {
	recorder := installRecorder(t)

	_, span := StartToolSpan(context.Background(), "export_query_result_to_excel_and_email")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.export_query_result_to_excel_and_email", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}

func TestSetSpanError_NilError(t *testing.T) {
	recorder := installRecorder(t)

	_, span := StartStageSpan(context.Background(), StageGuard, "run-2")
	SetSpanError(span, nil)
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}
