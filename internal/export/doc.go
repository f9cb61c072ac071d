// Package export runs the query-to-email pipeline behind the
// export_query_result_to_excel_and_email tool.
//
// A run moves through four stages:
//
//  1. guard: the statement must pass the SELECT-only policy
//  2. query: the statement is executed on a fresh database connection
//  3. artifact: non-empty results are written to an .xlsx file
//  4. delivery: the file is emailed to the configured recipients
//
// The first three stages share one failure boundary: any failure ends the
// run with a failed Report that never references a file. Delivery has its
// own narrower boundary; a failed delivery still yields a successful Report
// with EmailSent set to false.
//
// Every stage is traced and timed, and every run is counted by outcome.
package export
