// Package config loads, normalizes, and validates studioflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours .env files plus STUDIOFLOW_*
// environment overrides for secrets such as the PostgreSQL URL and the API
// token secret. The Config type centralizes every knob the CLI and API server
// need so the store, notifier, and logger are configured in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
