// Package services defines shared utilities consumed by the orchestration
// components and their transports.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, acting worker IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper; KindOf turns any error
//     into the closed Kind set the CLI and HTTP layers report.
//
// Use these helpers when wiring new components so error classification and
// observability stay uniform.
package services
