// Package store persists named JSON documents.
//
// Each logical name maps to one file in a directory. Documents are loaded
// whole at startup and rewritten whole after every mutation; callers own the
// in-memory state between writes.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
)

// Store reads and writes named JSON documents under a directory.
type Store struct {
	dir string
}

// Open prepares a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("couldn't create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load fills v from the named document. A missing document leaves v at its
// defaults and writes those defaults back immediately so the file exists for
// the next run. A malformed document is an error; the caller decides whether
// to degrade to defaults.
func (s *Store) Load(name string, v any) error {
	b, err := os.ReadFile(s.path(name))
	switch {
	case err == nil:
		if err := json.Unmarshal(b, v); err != nil {
			return fmt.Errorf("couldn't decode %s: %w", name, err)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return s.Save(name, v)
	default:
		return fmt.Errorf("couldn't read %s: %w", name, err)
	}
}

// Save writes v as the named document. The write is atomic: the document is
// staged to a temporary file and renamed into place.
func (s *Store) Save(name string, v any) error {
	b, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("couldn't encode %s: %w", name, err)
	}
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("couldn't stage %s: %w", name, err)
	}
	tmp := f.Name()
	_, werr := f.Write(b)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp)
		return fmt.Errorf("couldn't stage %s: %w", name, errors.Join(werr, cerr))
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("couldn't store %s: %w", name, err)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
