// Package stores persists run history for the wplocal CLI in a local
// SQLite database.
//
// The store is an audit trail, not state: every create/remove invocation
// records a run row and per-step event rows, surfaced by `wplocal history`.
// Rollback bookkeeping lives only in process memory for the duration of one
// invocation, and site status is always reconstructed by querying the live
// resources, never read back from here.
package stores
