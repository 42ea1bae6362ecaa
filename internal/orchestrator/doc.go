// Package orchestrator is the single entry point external collaborators call
// to create and move jobs.
//
// Each operation takes the acting worker explicitly, validates input before
// touching the store, loads the job, hands it to the workflow state machine
// (which resolves assignees and runs entitlement debits inside its commit),
// and then fans the committed change out to notification recipients exactly
// once. Failures carry a services.Kind so the HTTP and CLI layers can tell
// validation, authorization, conflict, entitlement, and not-found apart.
// Assignment gaps come back as warnings next to a successful result.
package orchestrator
