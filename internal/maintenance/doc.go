// Package maintenance deletes biometric databases: their files, their
// service registry keys, and unregistered ("orphan") database files.
//
// The biometric service holds the files open and locks its registry tree, so
// Run stops it before touching anything and restarts it afterwards whenever
// it was running, even when some deletions failed. Each target is processed
// independently; failures are collected and reported after the restart.
package maintenance
