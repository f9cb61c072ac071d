// Package common provides shared utilities for MCP tool implementations,
// chiefly the instrumentation wrapper every tool handler is registered with.
package common
