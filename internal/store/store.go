package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into user_version. Version 1 is the baseline
// (netnodes + document). Newer sidecars are refused.
const schemaVersion = 1

// ErrSchemaTooNew is returned when a sidecar was written by a newer schema.
var ErrSchemaTooNew = errors.New("sidecar schema is newer than supported")

// DefaultSuffix is appended to a document path to name its sidecar.
const DefaultSuffix = ".idarling.db"

// Store provides durable per-document storage.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db   *sql.DB
	path string
}

// PathFor returns the sidecar path for a document. An empty suffix selects
// DefaultSuffix.
func PathFor(document, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if strings.HasSuffix(document, suffix) {
		return document
	}
	return document + suffix
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenDocument opens the sidecar for a document and records the document
// path in it.
func OpenDocument(ctx context.Context, document, suffix string) (*Store, error) {
	s, err := Open(PathFor(document, suffix))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(document)
	if err != nil {
		abs = document
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document (id, path) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET path = excluded.path,
			opened_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, abs)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("record document: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the sidecar path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Document returns the document path recorded by OpenDocument, or "" when the
// sidecar was opened directly.
func (s *Store) Document(ctx context.Context) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM document WHERE id = 1`).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return path, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Sidecars written by a newer release are refused.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, version, schemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
