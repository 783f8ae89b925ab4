package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	saveRetries   = 3
	saveBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements PatternStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	saveMu sync.Mutex // serializes table rewrites to avoid SQLITE_BUSY
}

// NewSQLite opens (and creates if needed) a SQLite-backed pattern store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS patterns (
		pattern TEXT PRIMARY KEY,
		template TEXT NOT NULL,
		position INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_patterns_position ON patterns(position);

	CREATE TABLE IF NOT EXISTS pattern_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string { return s.path }

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load returns the stored table ordered by position. A database that was
// never saved to reports ErrNotFound, even though its schema exists.
func (s *SQLiteStore) Load(ctx context.Context) ([]domain.PatternEntry, error) {
	var initialized string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM pattern_meta WHERE key = 'initialized'`).Scan(&initialized)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Path: s.path, Err: fmt.Errorf("read pattern metadata: %w", err)}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT pattern, template FROM patterns ORDER BY position ASC`)
	if err != nil {
		return nil, &domain.StorageError{Path: s.path, Err: fmt.Errorf("query patterns: %w", err)}
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close pattern rows", "error", closeErr)
		}
	}()

	var entries []domain.PatternEntry
	for rows.Next() {
		var e domain.PatternEntry
		if err := rows.Scan(&e.Pattern, &e.Template); err != nil {
			return nil, &domain.StorageError{Path: s.path, Err: fmt.Errorf("scan pattern row: %w", err)}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Path: s.path, Err: fmt.Errorf("iterate patterns: %w", err)}
	}
	return entries, nil
}

// Save rewrites the whole table in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, entries []domain.PatternEntry) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	err := shared.RetryOnConflict(ctx, "save patterns", saveRetries, saveBaseDelay, func() error {
		return s.saveOnce(ctx, entries)
	})
	if err != nil {
		return fmt.Errorf("save patterns after %d attempts: %w", saveRetries, err)
	}
	return nil
}

func (s *SQLiteStore) saveOnce(ctx context.Context, entries []domain.PatternEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patterns (pattern, template, position, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pattern) DO UPDATE SET
			template = excluded.template,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Pattern, e.Template, i, now); err != nil {
			return fmt.Errorf("insert pattern %q: %w", e.Pattern, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pattern_meta (key, value) VALUES ('initialized', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprint(now)); err != nil {
		return fmt.Errorf("mark initialized: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patterns: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
