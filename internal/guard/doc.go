// Package guard decides whether a caller-supplied SQL string may be executed.
//
// The policy is a coarse textual filter, not a parser: the statement is
// uppercased and scanned for a fixed list of mutating, DDL and privilege
// keywords. Any match rejects the statement. For the "select" action the
// statement must additionally begin with SELECT.
//
// Substring matching over-rejects (a column named update_count contains
// UPDATE) and can be evaded by obfuscated statements. It is advisory only;
// the database role used by the executor should be read-only as well.
package guard
