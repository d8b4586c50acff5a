// Package sqlite provides the durable queue store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database file holds:
//
//   - the three mutation queues (QueueStore)
//   - the sync flags (MetadataStore)
//   - the sync pass log (HistoryStore)
//
// # Lifecycle
//
// NewStore only resolves the path. The database is opened and migrated by
// Initialize, which is idempotent and safe to call from several goroutines.
// Until it succeeds every other call fails with domain.ErrStorageUnavailable.
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.fieldsync/data/queue.db
package sqlite
