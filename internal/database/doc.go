// Package database runs caller-supplied queries against PostgreSQL and returns
// the rows as an in-memory tabular Result.
//
// Every call to Run opens its own connection and closes it before returning,
// whether the query succeeded or not. There is no pool and no reuse across
// calls. The executor does not inspect the SQL; gatekeeping happens earlier in
// the guard package and the database's own permissions are the real backstop.
//
// Failures are reported as *ConnectionError when the server cannot be reached
// or rejects the credentials, and as *QueryError when the statement itself
// fails (syntax, permissions, timeouts, errors while streaming rows).
package database
