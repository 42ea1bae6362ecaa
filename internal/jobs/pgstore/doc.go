// Package pgstore implements the jobs store on PostgreSQL through a pgx
// connection pool, for deployments where several studioflow processes share
// one database.
//
// Conditional job updates behave exactly like the SQLite store. Entitlement
// debits lock the client's assignment rows with SELECT ... FOR UPDATE before
// reading balances, so racing debits for the same client queue on the row
// locks and re-read committed usage once they acquire them.
package pgstore
