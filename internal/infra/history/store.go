// Package history keeps the ordered list of analysis records in a single JSON document.
//
// Every mutation rewrites the whole document. That is fine for a personal
// history of a few hundred entries and is the known scaling ceiling of this store.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
)

// AssetRemover deletes the image a record points at. Implementations must not fail.
type AssetRemover interface {
	Delete(path string)
}

// Store is the in-memory history bound to its backing document.
// The mutex only serialises callers inside this process; two processes
// writing the same document can still lose updates.
type Store struct {
	mu      sync.Mutex
	path    string
	assets  AssetRemover
	records []artifact.Record
}

// Open creates a store for the document at path and loads whatever is there.
func Open(path string, assets AssetRemover) *Store {
	s := &Store{path: path, assets: assets}
	s.Load()
	return s
}

// Path returns the backing document path.
func (s *Store) Path() string { return s.path }

// Load re-reads the backing document. A missing or unparsable document is an
// empty history, never an error.
func (s *Store) Load() []artifact.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = readDocument(s.path)
	return s.snapshot()
}

// Records returns a copy of the history in insertion order.
func (s *Store) Records() []artifact.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns the record at index.
func (s *Store) Get(index int) (artifact.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return artifact.Record{}, false
	}
	return s.records[index], true
}

// Append adds rec at the end and rewrites the document. If the write fails
// the history is left as it was.
func (s *Store) Append(rec artifact.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]artifact.Record, len(s.records), len(s.records)+1)
	copy(next, s.records)
	next = append(next, rec)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// DeleteAt removes the record at index, rewrites the document and deletes the
// record's image. An out-of-range index is a no-op. If the write fails neither
// the history nor the image is touched.
func (s *Store) DeleteAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return nil
	}
	rec := s.records[index]
	next := make([]artifact.Record, 0, len(s.records)-1)
	next = append(next, s.records[:index]...)
	next = append(next, s.records[index+1:]...)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next
	s.assets.Delete(rec.ImagePath)
	return nil
}

// Clear empties the history, rewrites the document and deletes every record's
// image. If the write fails nothing is removed.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(nil); err != nil {
		return err
	}
	old := s.records
	s.records = nil
	for _, rec := range old {
		s.assets.Delete(rec.ImagePath)
	}
	return nil
}

func (s *Store) snapshot() []artifact.Record {
	out := make([]artifact.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) write(records []artifact.Record) error {
	data, err := encodeDocument(records)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func readDocument(path string) []artifact.Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var records []artifact.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// encodeDocument renders records as an indented JSON array. HTML characters
// and non-ASCII text are written literally.
func encodeDocument(records []artifact.Record) ([]byte, error) {
	if records == nil {
		records = []artifact.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return buf.Bytes(), nil
}
