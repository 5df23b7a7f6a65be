package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.StructuredStore = (*Store)(nil)

// DefaultFile is the database file name inside the data directory.
const DefaultFile = "records.db"

// Store is a SQLite-backed structured store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and applies
// pending migrations. An empty path defaults to ~/.medingest/records.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".medingest", DefaultFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode for concurrent readers; busy_timeout absorbs short lock waits.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Name identifies the target.
func (s *Store) Name() string {
	return string(domain.SyncTargetSQLite)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_records.up.sql" -> 1
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
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Upsert writes rec under id in collection.
func (s *Store) Upsert(ctx context.Context, collection, id string, rec domain.Record) error {
	if collection == "" || id == "" || rec.Key == "" {
		return fmt.Errorf("sqlite: collection, id and key are required: %w", domain.ErrSyncPermanent)
	}
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("sqlite: marshalling attributes: %w: %v", domain.ErrSyncPermanent, err)
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, key, type, value, text, attributes,
			source_document_id, confidence, verified, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			key = excluded.key,
			type = excluded.type,
			value = excluded.value,
			text = excluded.text,
			attributes = excluded.attributes,
			source_document_id = excluded.source_document_id,
			confidence = excluded.confidence,
			verified = excluded.verified,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`, collection, id, rec.Key, string(rec.Type), rec.Value, rec.Text, string(attrs),
		rec.SourceDocumentID, rec.Confidence, rec.Verified, rec.ContentHash, updatedAt.UTC())
	if err != nil {
		return classify("upsert", err)
	}
	return nil
}

// Query returns the record whose dedup key is key, or nil.
func (s *Store) Query(ctx context.Context, collection, key string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, type, value, text, attributes, source_document_id,
			confidence, verified, content_hash, updated_at
		FROM records WHERE collection = ? AND key = ?
	`, collection, key)

	var (
		rec     domain.Record
		recType string
		attrs   string
	)
	err := row.Scan(&rec.ID, &rec.Key, &recType, &rec.Value, &rec.Text, &attrs,
		&rec.SourceDocumentID, &rec.Confidence, &rec.Verified, &rec.ContentHash, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("query", err)
	}
	rec.Type = domain.EntityType(recType)
	if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
		return nil, fmt.Errorf("sqlite: decoding attributes: %w", err)
	}
	return &rec, nil
}

// classify wraps busy and locked errors as transient and constraint
// violations as permanent.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("sqlite %s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("sqlite %s: %w: %v", op, domain.ErrSyncTransient, err)
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("sqlite %s: %w: %v", op, domain.ErrSyncTransient, err)
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM:
			return fmt.Errorf("sqlite %s: %w: %v", op, domain.ErrSyncPermanent, err)
		}
	}
	return fmt.Errorf("sqlite %s: %w", op, err)
}
