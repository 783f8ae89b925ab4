package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ashureev/shsh-voice/internal/domain"
	"gopkg.in/yaml.v3"
)

// Format selects the document encoding of a FileStore.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FileStore keeps the pattern table as a single key/value document whose key
// order is the table order.
type FileStore struct {
	path   string
	format Format
}

// NewFile creates a file-backed store. The file is not touched until Load or Save.
func NewFile(path string, format Format) *FileStore {
	return &FileStore{path: path, format: format}
}

// Location returns the document path.
func (s *FileStore) Location() string { return s.path }

// Ping checks that the document's directory exists.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat pattern directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("pattern directory %s is not a directory", dir)
	}
	return nil
}

// Close is a no-op for file stores.
func (s *FileStore) Close() error { return nil }

// Load reads the document.
func (s *FileStore) Load(_ context.Context) ([]domain.PatternEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Path: s.path, Err: fmt.Errorf("read patterns: %w", err)}
	}

	var entries []domain.PatternEntry
	switch s.format {
	case FormatYAML:
		entries, err = decodeYAML(data)
	default:
		entries, err = decodeJSON(data)
	}
	if err != nil {
		return nil, &domain.StorageError{Path: s.path, Err: err}
	}
	return entries, nil
}

// Save writes the document through a temporary file and renames it into place.
func (s *FileStore) Save(_ context.Context, entries []domain.PatternEntry) error {
	var (
		data []byte
		err  error
	)
	switch s.format {
	case FormatYAML:
		data, err = encodeYAML(entries)
	default:
		data, err = encodeJSON(entries)
	}
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create patterns directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".patterns-*")
	if err != nil {
		return fmt.Errorf("create temp patterns file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write patterns: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp patterns file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace patterns file: %w", err)
	}
	return nil
}

// decodeJSON walks the object token by token so key order survives.
func decodeJSON(data []byte) ([]domain.PatternEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode patterns: expected object, got %v", tok)
	}

	var entries []domain.PatternEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode pattern key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode pattern key: unexpected %v", keyTok)
		}
		var template string
		if err := dec.Decode(&template); err != nil {
			return nil, fmt.Errorf("decode template for %q: %w", key, err)
		}
		entries = upsert(entries, domain.PatternEntry{Pattern: key, Template: template})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode patterns: trailing data after object")
	}
	return entries, nil
}

// encodeJSON writes a 4-space indented object without HTML escaping, so
// templates such as "echo.>" stay readable when edited by hand.
func encodeJSON(entries []domain.PatternEntry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := marshalString(e.Pattern)
		if err != nil {
			return nil, err
		}
		val, err := marshalString(e.Template)
		if err != nil {
			return nil, err
		}
		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeYAML(data []byte) ([]domain.PatternEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("decode patterns: empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode patterns: line %d: expected mapping", root.Line)
	}

	var entries []domain.PatternEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("decode patterns: line %d: expected string pair", k.Line)
		}
		entries = upsert(entries, domain.PatternEntry{Pattern: k.Value, Template: v.Value})
	}
	return entries, nil
}

func encodeYAML(entries []domain.PatternEntry) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Pattern, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Template, Style: yaml.DoubleQuotedStyle},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
