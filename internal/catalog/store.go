package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store persists the rule list across restarts.
type Store interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

type document struct {
	Rules []Entry `yaml:"rules"`
}

// FileStore keeps the rule list in a YAML document.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the persisted entries. A missing file is an empty list.
func (s *FileStore) Load() ([]Entry, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return doc.Rules, nil
}

// Save replaces the persisted entries atomically.
func (s *FileStore) Save(entries []Entry) error {
	data, err := Marshal(entries)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.yaml")
	if err != nil {
		return fmt.Errorf("create catalog temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Marshal serializes entries in the persisted document format.
func Marshal(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := yaml.Marshal(document{Rules: entries})
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return data, nil
}

// MemoryStore keeps entries in memory. It is useful for tests and one-shot commands.
type MemoryStore struct {
	Entries []Entry
	Saves   int
}

func (m *MemoryStore) Load() ([]Entry, error) {
	return append([]Entry(nil), m.Entries...), nil
}

func (m *MemoryStore) Save(entries []Entry) error {
	m.Entries = append([]Entry(nil), entries...)
	m.Saves++
	return nil
}
