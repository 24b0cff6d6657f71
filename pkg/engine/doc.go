// Package engine implements the provisioning transaction model for local
// WordPress sites.
//
// # Overview
//
// A site spans five independent resources that share no transaction:
// a document root on disk, an Apache vhost, a hosts-file entry, a MySQL
// database, and a MySQL user. The engine approximates all-or-nothing
// semantics with a saga: an ordered sequence of steps, each pairing a
// forward mutation with a compensating action, executed strictly in order
// and unwound strictly in reverse when any step fails.
//
// # Components
//
//   - SiteRequest / SiteInfo: validated input and the success snapshot
//   - Step: one forward action plus its compensation and completion flag
//   - Provisioner: runs the 10-step forward sequence, owns the
//     compensation stack for the duration of one call
//   - Decommissioner: the mirror flow; no compensation stack, every step
//     tolerates an already-absent resource so removal is re-runnable
//   - Checker: conflict scan and dependency probe before any mutation
//   - Inspector: read-only status reconstruction across the resources
//
// # Failure semantics
//
// The first failing step aborts the forward sequence. Completed steps are
// compensated in reverse completion order on a cancellation-immune context;
// compensation failures are logged and attached to the original error as
// detail, never surfaced as the primary cause. An operator interrupt during
// a run takes the same path as a step failure. After Provision returns,
// successfully or not, no compensation state survives the call.
//
// # Error classification
//
// Errors carry a Kind (validation, conflict, unavailable, adapter,
// config_invalid, not_confirmed, compensation) plus resource and step
// context. Use the predicate helpers (IsConflict, IsNotConfirmed, ...) to
// branch on classification.
package engine
