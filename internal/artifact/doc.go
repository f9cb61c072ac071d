// Package artifact turns query results into spreadsheet files and manages
// the scratch directories those files live in.
//
// A Builder writes a database.Result to a single-sheet .xlsx file named
// after the run timestamp:
//
//	rds_query_result_20240131_142500.xlsx
//
// Empty results never produce a file; Build returns ErrEmptyResult instead.
//
// A Workspace owns the scratch root. Each export run acquires its own
// RunDir beneath it so that concurrent runs never share a directory, and
// Close waits for in-flight runs before removing the root.
//
// Example usage:
//
//	ws, err := artifact.NewWorkspace("./temp", true, logger)
//	if err != nil {
//	    return err
//	}
//	defer ws.Close()
//
//	dir, err := ws.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer dir.Release()
//
//	art, err := artifact.NewBuilder(logger).Build(result, dir.Path, time.Now())
package artifact
