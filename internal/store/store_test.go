package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/google/go-cmp/cmp"
)

const defaultJSON = `{
    "list directory": "dir /B",
    "list files": "dir /B",
    "move to ([0-9]+)": "cd_index",
    "create folder (.*)": "mkdir",
    "create folder": "mkdir default",
    "create file (.*)": "echo.>",
    "create file": "echo.>default.txt",
    "back": "cd ..",
    "home": "cd .",
    "stop": "stop_listening"
}`

func TestFileStoreJSONDefaultDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	s := NewFile(path, FormatJSON)

	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on missing file error = %v, want ErrNotFound", err)
	}

	if err := s.Save(context.Background(), domain.DefaultPatterns()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaultJSON, string(data)); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(domain.DefaultPatterns(), got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreJSONPreservesHandEditedOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	doc := `{"zeta": "echo z", "alpha": "echo a", "zeta": "echo z2", "mid <x>": "echo & done"}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewFile(path, FormatJSON).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []domain.PatternEntry{
		{Pattern: "zeta", Template: "echo z2"},
		{Pattern: "alpha", Template: "echo a"},
		{Pattern: "mid <x>", Template: "echo & done"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreMalformed(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{"json syntax", FormatJSON, `{"list files": `},
		{"json array", FormatJSON, `["list files"]`},
		{"json non-string template", FormatJSON, `{"list files": 3}`},
		{"json trailing data", FormatJSON, `{"a": "b"} {}`},
		{"yaml sequence", FormatYAML, "- list files\n"},
		{"yaml nested value", FormatYAML, "list files:\n  nested: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "commands")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFile(path, tt.format).Load(context.Background())
			var storageErr *domain.StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("Load() error = %v, want *domain.StorageError", err)
			}
			if storageErr.Path != path {
				t.Errorf("StorageError.Path = %q, want %q", storageErr.Path, path)
			}
		})
	}
}

func TestFileStoreYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.yaml")
	s, err := Open("file", path, "")
	if err != nil {
		t.Fatal(err)
	}
	entries := append(domain.DefaultPatterns(), domain.PatternEntry{Pattern: "say (.*)", Template: "echo"})

	if err := s.Save(context.Background(), entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "patterns.db")

	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() on fresh database error = %v, want ErrNotFound", err)
	}

	entries := domain.DefaultPatterns()
	if err := s.Save(context.Background(), entries); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Reordered rewrite must come back in the new order.
	entries[0], entries[9] = entries[9], entries[0]
	entries = entries[:9]
	if err := s.Save(context.Background(), entries); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStoreEmptyTableIsNotMissing(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "patterns.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind, path string
		want       string
	}{
		{"file", filepath.Join(dir, "c.json"), "*store.FileStore"},
		{"file", filepath.Join(dir, "c.yml"), "*store.FileStore"},
		{"sqlite", filepath.Join(dir, "c.db"), "*store.SQLiteStore"},
	}
	for _, tt := range tests {
		s, err := Open(tt.kind, tt.path, tt.path)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", tt.kind, err)
		}
		if got := typeName(s); got != tt.want {
			t.Errorf("Open(%q, %q) = %s, want %s", tt.kind, tt.path, got, tt.want)
		}
		if s.Location() != tt.path {
			t.Errorf("Location() = %q, want %q", s.Location(), tt.path)
		}
		_ = s.Close()
	}
}

func typeName(s PatternStore) string {
	switch s.(type) {
	case *FileStore:
		return "*store.FileStore"
	case *SQLiteStore:
		return "*store.SQLiteStore"
	default:
		return "unknown"
	}
}
