package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name.
const TracerName = "github.com/teemow/queryexport"

// Span attribute keys.
const (
	SpanAttrTool      = "mcp.tool"
	SpanAttrStage     = "export.stage"
	SpanAttrRunID     = "export.run_id"
	SpanAttrRowCount  = "export.row_count"
	SpanAttrFile      = "export.file"
	SpanAttrEmailSent = "export.email_sent"
	SpanAttrSQLVerb   = "db.operation"
)

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartStageSpan starts a span for one pipeline stage. Query and delivery
// stages call out to remote systems and are marked as client spans.
func StartStageSpan(ctx context.Context, stage, runID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrStage, stage),
		attribute.String(SpanAttrRunID, runID),
	)
	allAttrs = append(allAttrs, attrs...)

	kind := trace.SpanKindInternal
	if stage == StageQuery || stage == StageDelivery {
		kind = trace.SpanKindClient
	}

	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "export."+stage,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(kind),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
