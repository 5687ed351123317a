// Package store persists the timeline model and the command log in
// SQLite. The database is the source of truth: the in-memory view is a
// cache rebuilt from these tables, and every command commits its mutation
// bucket, its log row and its head move in one transaction.
//
// Writes are idempotent where identity allows it: command rows conflict
// on sequence number and are silently skipped on re-insert, which makes
// crash-recovery replay safe to repeat.
package store
