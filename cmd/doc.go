// Package cmd implements the command-line interface for queryexport.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing the export tool (stdio, streamable-http or sse)
//   - export: Run a single export from the shell and print the JSON report
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// All commands that touch the database or the mail relay read their settings
// from the environment, optionally layered over a file passed with --config.
package cmd
