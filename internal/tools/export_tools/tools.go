package export_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/queryexport/internal/server"
	"github.com/teemow/queryexport/internal/tools/common"
)

// ExportToolName is the MCP name of the export tool.
const ExportToolName = "export_query_result_to_excel_and_email"

// RegisterExportTools registers the export tool with the MCP server
func RegisterExportTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	exportTool := mcp.NewTool(ExportToolName,
		mcp.WithDescription("Run a read-only SQL SELECT against PostgreSQL, export the rows to an Excel (.xlsx) file "+
			"and email it as an attachment to the configured recipients. Returns a JSON report with status, "+
			"file_path, email_sent, row_count and timestamp. Statements that are not SELECTs or that contain "+
			"data-modifying keywords are rejected before reaching the database."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("SQL SELECT statement to execute, e.g. 'SELECT id, name FROM users'"),
		),
		mcp.WithString("subject",
			mcp.Description("Email subject (default: generated from the export timestamp)"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(exportTool, common.InstrumentedToolHandler(ExportToolName, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExport(ctx, request, sc)
		}))

	return nil
}

func handleExport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	sql, ok := args["sql"].(string)
	if !ok || strings.TrimSpace(sql) == "" {
		return mcp.NewToolResultError("sql is required"), nil
	}

	subject := ""
	if subjectVal, ok := args["subject"].(string); ok {
		subject = subjectVal
	}

	report := sc.Exporter().Execute(ctx, sql, subject)

	body, err := report.JSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
	}

	if !report.Succeeded() {
		return mcp.NewToolResultError(body), nil
	}
	return mcp.NewToolResultText(body), nil
}
