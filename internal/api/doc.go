// Package api serves the orchestrator over HTTP.
//
// # Transport
//
// NewRouter builds a chi router with request ids, real-ip handling, panic
// recovery, and an slog request logger. Every /v1 route except the health
// check sits behind the identity middleware: the bearer token is an
// HMAC-SHA256 signed JWT whose subject is a worker id, and the worker's role is
// always read back from the store, never from the token.
//
// # Errors
//
// Failures are classified with services.KindOf and mapped onto status codes:
// validation 400, authorization 403, not_found 404, conflict 409, entitlement
// 422, and everything else 500. The body is {"error": message, "kind": kind}.
// Missing, malformed, or expired tokens and unknown or inactive workers get 401.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums are exposed as their lowercase string
// values and timestamps use RFC3339 with milliseconds. Assignment warnings are
// part of the success body, not errors.
package api
