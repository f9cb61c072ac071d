// Package export_tools registers the export_query_result_to_excel_and_email
// MCP tool.
//
// The tool takes a read-only SQL statement and an optional email subject,
// runs the export pipeline and returns the pipeline's report as JSON text.
// Failed reports are flagged with IsError so that clients can tell them
// apart without parsing the body.
package export_tools
