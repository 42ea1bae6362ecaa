// Package preflight provides readiness checks for the paths and external
// services studioflow depends on.
//
// `studioflow check` prints every result; `studioflow serve` runs the same
// checks at startup and refuses to listen when a required one fails.
//
// Each check is gated by its config toggle. Push delivery is only probed
// when notifications.ntfy_url is set.
package preflight
