package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/queryexport/internal/export"
	"github.com/teemow/queryexport/internal/instrumentation"
	"github.com/teemow/queryexport/internal/server"
)

type nopExporter struct{}

func (nopExporter) Execute(context.Context, string, string) export.Report {
	return export.Report{Status: export.StatusSuccess}
}

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	sc, err := server.NewServerContext(context.Background(), nopExporter{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func sqlRequest(sql string) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"sql": sql}
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, result)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)

	expectedErr := errors.New("test error")
	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), mcp.CallToolRequest{})
	assert.ErrorIs(t, err, expectedErr)
}

func TestInstrumentedToolHandler_WithMetricsAndAudit(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLogger(logger))

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("failed report"), nil
	}

	result, err := InstrumentedToolHandler("export_tool", sc, handler)(context.Background(), sqlRequest("SELECT password FROM users"))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	out := buf.String()
	assert.Contains(t, out, "tool_failed")
	assert.Contains(t, out, "tool=export_tool")
	assert.Contains(t, out, "sql_verb=SELECT")
	assert.NotContains(t, out, "FROM users")
}

func TestInstrumentedToolHandler_AuditOnly(t *testing.T) {
	sc := newServerContext(t)

	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	handler := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("{}"), nil
	}

	_, err := InstrumentedToolHandler("export_tool", sc, handler)(context.Background(), sqlRequest("SELECT 1"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "tool_executed")
}
