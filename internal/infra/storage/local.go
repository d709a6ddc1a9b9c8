package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/artifact-age/internal/application"
)

const fileTimeLayout = "20060102_150405"

// LocalStore writes uploaded images into a single directory on local disk.
type LocalStore struct {
	dir   string
	clock application.Clock
	newID func() string
}

// NewLocalStore returns a store rooted at dir. The directory is created on first Save.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{
		dir:   dir,
		clock: application.SystemClock{},
		newID: shortID,
	}
}

// WithClock overrides the time source used in generated filenames.
func (s *LocalStore) WithClock(c application.Clock) *LocalStore {
	s.clock = c
	return s
}

// Dir returns the directory images are written to.
func (s *LocalStore) Dir() string { return s.dir }

// ExtensionFor maps a declared MIME type to a file extension.
// Only image/png maps to png; everything else, unknown types included, is jpg.
func ExtensionFor(mimeType string) string {
	if mimeType == "image/png" {
		return "png"
	}
	return "jpg"
}

// Save writes data under <YYYYMMDD_HHMMSS>_<8 hex>.<ext> and returns the path.
// originalName is not used for the stored filename; it stays on the record.
func (s *LocalStore) Save(data []byte, mimeType, originalName string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", s.clock.Now().Format(fileTimeLayout), s.newID(), ExtensionFor(mimeType))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", originalName, err)
	}
	return path, nil
}

// Delete removes the file at path. Best-effort: errors are swallowed and an
// empty path is ignored.
func (s *LocalStore) Delete(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// Exists reports whether path names an existing regular file.
func (s *LocalStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// shortID returns the first 8 hex characters of a random UUID.
func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
