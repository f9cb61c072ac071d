package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod  = "method"
	attrPath    = "path"
	attrStatus  = "status"
	attrStage   = "stage"
	attrOutcome = "outcome"
	attrResult  = "result"
	attrTool    = "tool"
	attrDomain  = "domain"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid recorder that records nothing.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Export pipeline metrics
	exportRunsTotal     metric.Int64Counter
	exportStageDuration metric.Float64Histogram
	exportRowsTotal     metric.Int64Counter
	emailDeliveries     metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.exportRunsTotal, err = meter.Int64Counter(
		"export_runs_total",
		metric.WithDescription("Total number of export pipeline runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export_runs_total counter: %w", err)
	}

	m.exportStageDuration, err = meter.Float64Histogram(
		"export_stage_duration_seconds",
		metric.WithDescription("Export pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export_stage_duration_seconds histogram: %w", err)
	}

	m.exportRowsTotal, err = meter.Int64Counter(
		"export_rows_total",
		metric.WithDescription("Total number of rows written to spreadsheet artifacts"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export_rows_total counter: %w", err)
	}

	m.emailDeliveries, err = meter.Int64Counter(
		"email_deliveries_total",
		metric.WithDescription("Total number of email delivery attempts by result"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create email_deliveries_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExportRun records the final outcome of one pipeline run.
// Outcome is one of the Outcome* constants.
func (m *Metrics) RecordExportRun(ctx context.Context, outcome string) {
	if m == nil || m.exportRunsTotal == nil {
		return
	}
	m.exportRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordStage records how long a pipeline stage took and whether it succeeded.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil || m.exportStageDuration == nil {
		return
	}
	m.exportStageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	))
}

// RecordRowsExported adds n to the exported row counter.
func (m *Metrics) RecordRowsExported(ctx context.Context, n int) {
	if m == nil || m.exportRowsTotal == nil || n <= 0 {
		return
	}
	m.exportRowsTotal.Add(ctx, int64(n))
}

// RecordEmailDelivery records a delivery attempt. The recipient domain is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordEmailDelivery(ctx context.Context, sent bool, recipient string) {
	if m == nil || m.emailDeliveries == nil {
		return
	}

	result := DeliveryFailed
	if sent {
		result = DeliverySent
	}

	attrs := []attribute.KeyValue{attribute.String(attrResult, result)}
	if m.detailedLabels && recipient != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(recipient)))
	}

	m.emailDeliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
