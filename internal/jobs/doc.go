// Package jobs persists jobs, workers, package entitlements, and notifications
// and defines the domain types the workflow packages share.
//
// The Store is backed by SQLite. Every write transaction begins IMMEDIATE so
// writers serialize on the database lock; conditional updates compare the
// stored version, status, and stage against a Precondition and report
// ErrConflict when another writer got there first. Entitlement debits run as a
// Debiter inside the same transaction as the job write they accompany, which
// keeps the job change and its usage record atomic.
//
// The pgstore subpackage provides the same method set on PostgreSQL.
//
// Schema changes bump schemaVersion in schema.go; existing databases with an
// older version are refused rather than migrated.
package jobs
