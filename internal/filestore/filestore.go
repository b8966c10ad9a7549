// Package filestore persists raw filing documents on disk so a filing's
// source XML can be re-examined or re-parsed after ingestion.
package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Store writes uploaded documents under a root directory. Files are laid
// out as <root>/<ticker>/<period>_<timestamp><ext> so repeated uploads for
// the same period never clobber each other before the database swap
// completes.
type Store struct {
	root string

	// Now is the clock used for filename stamps; tests pin it.
	Now func() time.Time
}

func New(root string) *Store {
	return &Store{root: root, Now: time.Now}
}

// Root returns the base directory documents are stored under.
func (s *Store) Root() string {
	return s.root
}

// Save streams r to disk and returns the stored path relative to the
// store root.
func (s *Store) Save(ticker, periodLabel, sourceFilename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, sanitize(ticker))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "filestore: create dir %s", dir)
	}

	ext := filepath.Ext(sourceFilename)
	if ext == "" {
		ext = ".xml"
	}
	name := sanitize(periodLabel) + "_" + s.Now().UTC().Format("20060102T150405") + ext
	rel := filepath.Join(sanitize(ticker), name)
	full := filepath.Join(s.root, rel)

	f, err := os.Create(full)
	if err != nil {
		return "", eris.Wrapf(err, "filestore: create %s", full)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", eris.Wrapf(err, "filestore: write %s", full)
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrapf(err, "filestore: close %s", full)
	}
	return rel, nil
}

// Open returns the stored document for reading.
func (s *Store) Open(rel string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, rel))
	if err != nil {
		return nil, eris.Wrapf(err, "filestore: open %s", rel)
	}
	return f, nil
}

// Remove deletes a stored document. A missing file is not an error:
// removal runs after a filing swap and the previous document may already
// be gone.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, rel))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "filestore: remove %s", rel)
	}
	return nil
}

// sanitize keeps path components filesystem-safe.
func sanitize(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
