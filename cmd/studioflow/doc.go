// Package main hosts the studioflow CLI entrypoint and command graph.
//
// The Cobra command tree opens the configured record store directly and
// drives the orchestrator in-process: job creation and transitions, chain
// setup, usage and notification queries, seeding reference data, and token
// issuance. `studioflow serve` exposes the same operations over HTTP.
//
// Commands that act on jobs run as the worker named by --as (or
// STUDIOFLOW_ACTOR). The actor's role is always read back from the store.
package main
