package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures one MCP tool call for the audit log.
type ToolInvocation struct {
	Tool      string
	SessionID string

	// SQL is the statement the caller submitted. Only logged when
	// AuditLoggingConfig.IncludeSQL is set.
	SQL string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSession sets the MCP session identifier.
func (ti *ToolInvocation) WithSession(sessionID string) *ToolInvocation {
	ti.SessionID = sessionID
	return ti
}

// WithSQL records the submitted statement.
func (ti *ToolInvocation) WithSQL(sql string) *ToolInvocation {
	ti.SQL = sql
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation. The statement text is
// included only when includeSQL is set; otherwise just its leading verb.
func (ti *ToolInvocation) LogAttrs(includeSQL bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", ti.SessionID))
	}
	if ti.SQL != "" {
		if includeSQL {
			attrs = append(attrs, slog.String("sql", ti.SQL))
		} else {
			attrs = append(attrs, slog.String("sql_verb", SQLVerb(ti.SQL)))
		}
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured line per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includeSQL bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that does not log statement text.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includeSQL: config.IncludeSQL,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at info level on success and warn level on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeSQL)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
