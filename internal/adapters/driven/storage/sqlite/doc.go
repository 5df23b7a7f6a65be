// Package sqlite provides a SQLite implementation of the structured store
// entities are synced to.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and embedded at compile time. Applied versions are
// recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.medingest/records.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode; busy and locked errors are reported as
// transient so the sync layer retries them.
package sqlite
