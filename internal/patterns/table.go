// Package patterns holds the pattern table and turns transcripts into commands.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"sync"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/store"
)

// compiledEntry pairs an entry with its anchored expression. re is nil when
// the pattern does not compile; such entries only take part in exact matching.
type compiledEntry struct {
	domain.PatternEntry
	re *regexp.Regexp
}

// Table is the ordered, persisted pattern table. Every mutation is written
// to the store before it becomes visible.
type Table struct {
	mu      sync.RWMutex
	store   store.PatternStore
	entries []compiledEntry
	logger  *slog.Logger
}

// NewTable creates an empty table backed by s. Call Load before use.
func NewTable(s store.PatternStore, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{store: s, logger: logger}
}

// Load reads the persisted table, seeding and persisting the defaults when
// nothing has been stored yet. Corrupt data is returned as *domain.StorageError.
func (t *Table) Load(ctx context.Context) error {
	entries, err := t.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		entries = domain.DefaultPatterns()
		if err := t.store.Save(ctx, entries); err != nil {
			return &domain.StorageError{Path: t.store.Location(), Err: fmt.Errorf("seed default patterns: %w", err)}
		}
		t.logger.Info("Seeded default pattern table", "location", t.store.Location(), "count", len(entries))
	} else if err != nil {
		return err
	}

	t.mu.Lock()
	t.entries = t.compile(entries)
	t.mu.Unlock()

	t.logger.Info("Pattern table loaded", "location", t.store.Location(), "count", len(entries))
	return nil
}

// Reload re-reads the store. On failure the current table stays in effect.
func (t *Table) Reload(ctx context.Context) error {
	entries, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload patterns: %w", err)
	}

	t.mu.Lock()
	t.entries = t.compile(entries)
	t.mu.Unlock()

	t.logger.Info("Pattern table reloaded", "location", t.store.Location(), "count", len(entries))
	return nil
}

// Add inserts or overwrites the entry for pattern and persists the table.
// An overwritten entry keeps its position. A failed write is returned as
// *domain.StorageError and leaves the table unchanged.
func (t *Table) Add(ctx context.Context, pattern, template string) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := slices.Clone(t.entries)
	entry := compiledEntry{PatternEntry: domain.PatternEntry{Pattern: pattern, Template: template}, re: re}
	if i := t.indexLocked(pattern); i >= 0 {
		next[i] = entry
	} else {
		next = append(next, entry)
	}

	if err := t.store.Save(ctx, plain(next)); err != nil {
		return &domain.StorageError{Path: t.store.Location(), Err: fmt.Errorf("persist pattern %q: %w", pattern, err)}
	}
	t.entries = next
	t.logger.Info("Pattern added", "pattern", pattern, "template", template)
	return nil
}

// Remove deletes the entry for pattern and reports whether it existed.
func (t *Table) Remove(ctx context.Context, pattern string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexLocked(pattern)
	if i < 0 {
		return false, nil
	}

	next := slices.Delete(slices.Clone(t.entries), i, i+1)
	if err := t.store.Save(ctx, plain(next)); err != nil {
		return false, &domain.StorageError{Path: t.store.Location(), Err: fmt.Errorf("persist removal of %q: %w", pattern, err)}
	}
	t.entries = next
	t.logger.Info("Pattern removed", "pattern", pattern)
	return true, nil
}

// List returns a snapshot of the entries in stored order.
func (t *Table) List() []domain.PatternEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return plain(t.entries)
}

// Lookup returns the template stored under exactly pattern.
func (t *Table) Lookup(pattern string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.indexLocked(pattern); i >= 0 {
		return t.entries[i].Template, true
	}
	return "", false
}

// Location names where the table is persisted.
func (t *Table) Location() string {
	return t.store.Location()
}

// Ping checks the backing store.
func (t *Table) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

// snapshot returns the current entries. Mutations replace the slice rather
// than writing into it, so callers may read it without holding the lock.
func (t *Table) snapshot() []compiledEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries
}

func (t *Table) indexLocked(pattern string) int {
	for i := range t.entries {
		if t.entries[i].Pattern == pattern {
			return i
		}
	}
	return -1
}

func (t *Table) compile(entries []domain.PatternEntry) []compiledEntry {
	out := make([]compiledEntry, 0, len(entries))
	for _, e := range entries {
		re, err := compilePattern(e.Pattern)
		if err != nil {
			t.logger.Warn("Pattern will only match exactly", "pattern", e.Pattern, "error", err)
		}
		out = append(out, compiledEntry{PatternEntry: e, re: re})
	}
	return out
}

// compilePattern anchors pattern to the whole input and allows at most one
// capture group.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() > 1 {
		return nil, fmt.Errorf("invalid pattern %q: %d capture groups, at most one allowed", pattern, re.NumSubexp())
	}
	return re, nil
}

func plain(entries []compiledEntry) []domain.PatternEntry {
	out := make([]domain.PatternEntry, len(entries))
	for i, e := range entries {
		out[i] = e.PatternEntry
	}
	return out
}
