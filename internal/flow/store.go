package flow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists a flow document at a fixed path.
//
// The watch cycle is the only writer; Store does no locking of its own.
type Store struct {
	path string
}

// NewStore returns a store for the flow file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the flow file path.
func (s *Store) Path() string { return s.path }

// Load reads and parses the flow file.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return doc, nil
}

// Save writes doc atomically: the bytes go to a temporary file in the same
// directory which then replaces the flow file. The original file mode is kept.
func (s *Store) Save(doc *Document) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp flow file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(doc.src); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write flow file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync flow file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close flow file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set flow file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace flow file: %w", err)
	}
	return nil
}

// ErrModified is returned by Apply when the flow file no longer holds the
// bytes the results were computed against.
var ErrModified = errors.New("flow file changed since it was loaded")

// Apply applies results to doc, the snapshot they were computed against, and
// saves the outcome when any byte changed. Nothing is written when the file on
// disk differs from doc.
func (s *Store) Apply(doc *Document, results map[int]Resolution) (*Document, Summary, error) {
	next, sum, err := Update(doc, results)
	if err != nil {
		return nil, Summary{}, err
	}
	if bytes.Equal(next.src, doc.src) {
		return next, sum, nil
	}

	current, err := os.ReadFile(s.path)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to read flow file: %w", err)
	}
	if !bytes.Equal(current, doc.src) {
		return nil, Summary{}, fmt.Errorf("%s: %w", s.path, ErrModified)
	}
	if err := s.Save(next); err != nil {
		return nil, Summary{}, err
	}
	return next, sum, nil
}
