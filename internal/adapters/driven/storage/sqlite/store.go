package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/safeworkpro/fieldsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// DBFileName is the database file inside the data directory.
const DBFileName = "queue.db"

// Ensure Store implements the storage interfaces.
var (
	_ driven.QueueStore    = (*Store)(nil)
	_ driven.MetadataStore = (*Store)(nil)
	_ driven.HistoryStore  = (*Store)(nil)
)

// Store is the SQLite-backed queue, metadata and history store.
type Store struct {
	dataDir string
	path    string

	mu sync.RWMutex
	db *sql.DB
}

// NewStore creates a store rooted at dataDir without opening it.
// If dataDir is empty, defaults to ~/.fieldsync/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fieldsync", "data")
	}

	return &Store{
		dataDir: dataDir,
		path:    filepath.Join(dataDir, DBFileName),
	}, nil
}

// Initialize opens and migrates the database.
// Calls after the first success are no-ops. A failure leaves the store
// closed so a later call can try again.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.RLock()
	ready := s.db != nil
	s.mu.RUnlock()
	if ready {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil // Another caller won the race
	}

	if err := os.MkdirAll(s.dataDir, 0700); err != nil {
		return fmt.Errorf("%w: creating data directory: %w", domain.ErrStorageUnavailable, err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("%w: opening database: %w", domain.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: opening database: %w", domain.ErrStorageUnavailable, err)
	}

	if err := migrate(ctx, db, migrations.FS); err != nil {
		db.Close()
		return fmt.Errorf("%w: running migrations: %w", domain.ErrStorageUnavailable, err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// conn returns the open database or ErrStorageUnavailable.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("%w: store not initialised", domain.ErrStorageUnavailable)
	}
	return s.db, nil
}

// migrate applies pending up migrations and records their versions.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := applyMigration(ctx, db, version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}
