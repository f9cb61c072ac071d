// Package resources provides MCP resources describing how the export tool is
// configured. Resources are read-only data sources that MCP clients can
// fetch before calling a tool, such as the SQL policy a statement must pass
// and where a successful export will be delivered.
//
// No secrets are exposed: recipients are reported by domain and count, and
// the database is identified by host only.
package resources
