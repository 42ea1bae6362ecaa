// Package workflow owns the job state machine.
//
// A Machine validates a requested transition against the job it was handed,
// authorizes the actor, resolves a new assignee when a chained job enters a
// stage, and commits the next state with a single conditional update. When a
// package-backed job enters a stage, the entitlement debit runs inside that
// same commit, so a failed debit leaves the job untouched.
//
// Lifecycle status and chain stage are separate axes. Advance moves chained
// jobs between stages (and to handover, which completes them); Complete
// finishes standalone jobs; SetStatus and Delete are administrative.
//
// The Machine never reloads. Callers load the job, pass it in, and on a
// ConflictError reload and decide whether to try again.
package workflow
