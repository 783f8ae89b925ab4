// Package store provides persistence for the pattern table.
package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/ashureev/shsh-voice/internal/domain"
)

// ErrNotFound is returned by Load when no table has been persisted yet.
var ErrNotFound = errors.New("pattern table not found")

// PatternStore persists an ordered pattern table.
type PatternStore interface {
	// Load returns the persisted entries in stored order, or ErrNotFound.
	// Malformed data is reported as *domain.StorageError.
	Load(ctx context.Context) ([]domain.PatternEntry, error)

	// Save replaces the persisted table with entries, keeping their order.
	Save(ctx context.Context, entries []domain.PatternEntry) error

	// Location names the backing file or database.
	Location() string

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

// Open returns the store selected by kind: "sqlite" opens dbPath, anything
// else uses a document file at patternsPath (YAML for .yaml/.yml, else JSON).
func Open(kind, patternsPath, dbPath string) (PatternStore, error) {
	if kind == "sqlite" {
		return NewSQLite(dbPath)
	}
	switch strings.ToLower(filepath.Ext(patternsPath)) {
	case ".yaml", ".yml":
		return NewFile(patternsPath, FormatYAML), nil
	default:
		return NewFile(patternsPath, FormatJSON), nil
	}
}

// upsert inserts or overwrites entry in place, keeping first-insertion order.
func upsert(entries []domain.PatternEntry, entry domain.PatternEntry) []domain.PatternEntry {
	for i := range entries {
		if entries[i].Pattern == entry.Pattern {
			entries[i].Template = entry.Template
			return entries
		}
	}
	return append(entries, entry)
}
