// Package history keeps a local SQLite journal of enrollment and database
// maintenance outcomes so operators can review what was changed on a host.
//
// The schema is embedded and versioned. A database created by a different
// schema version is rejected with ErrSchemaMismatch; delete the file to start
// a fresh journal.
package history
