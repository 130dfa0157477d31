// Package pathstore manages the persistent, ordered list of
// command-search directories and resolves command names against it.
package pathstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrDuplicate is returned by Add for a directory already present.
	ErrDuplicate = errors.New("directory already in path")
	// ErrMissing is returned by Remove for a directory not present.
	ErrMissing = errors.New("directory not in path")
)

// Store is the in-memory working copy of the search-directory list.
// Earlier entries shadow later ones during resolution. The shell owns
// exactly one Store; builtins mutate it and the resolver reads it.
type Store struct {
	fs   afero.Fs
	file string
	log  *slog.Logger

	dirs []string
}

// New returns an empty Store backed by the list file at path.
func New(fs afero.Fs, path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fs: fs, file: path, log: log}
}

// Load seeds the store from the backing file, one directory per line
// in file order. A missing file means an empty list, not an error.
func (s *Store) Load() error {
	data, err := afero.ReadFile(s.fs, s.file)
	if errors.Is(err, os.ErrNotExist) {
		s.dirs = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading path store: %w", err)
	}

	s.dirs = nil
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !s.contains(line) {
			s.dirs = append(s.dirs, line)
		}
	}
	s.log.Debug("path store loaded", "file", s.file, "entries", len(s.dirs))
	return nil
}

// SeedEnv appends the entries of an OS-format search path (as found
// in $PATH) that are not already present.
func (s *Store) SeedEnv(pathList string) {
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" || s.contains(dir) {
			continue
		}
		s.dirs = append(s.dirs, dir)
	}
}

// Add appends dir to the in-memory list. The directory is not
// required to exist yet. Adding a duplicate is a no-op reported as
// ErrDuplicate.
func (s *Store) Add(dir string) error {
	if s.contains(dir) {
		s.log.Warn("duplicate path store entry ignored", "dir", dir)
		return fmt.Errorf("%q: %w", dir, ErrDuplicate)
	}
	s.dirs = append(s.dirs, dir)
	return nil
}

// Remove deletes the first exact match of dir from the in-memory list.
func (s *Store) Remove(dir string) error {
	for i, d := range s.dirs {
		if d == dir {
			s.dirs = append(s.dirs[:i], s.dirs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%q: %w", dir, ErrMissing)
}

// List returns a copy of the current in-memory list, in order.
func (s *Store) List() []string {
	return append([]string(nil), s.dirs...)
}

// PathList renders the list in OS search-path format, suitable for
// exporting as $PATH to child processes.
func (s *Store) PathList() string {
	return strings.Join(s.dirs, string(os.PathListSeparator))
}

// Persist overwrites the backing file with the in-memory list, one
// directory per line. The write goes to a temporary file which is
// renamed into place so a crash mid-write cannot truncate the store.
func (s *Store) Persist() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.file), 0755); err != nil {
		return fmt.Errorf("persisting path store: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.file), ".falsh_path-*")
	if err != nil {
		return fmt.Errorf("persisting path store: %w", err)
	}
	tmpName := tmp.Name()

	var content strings.Builder
	for _, dir := range s.dirs {
		content.WriteString(dir)
		content.WriteByte('\n')
	}

	if _, err := tmp.WriteString(content.String()); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("persisting path store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("persisting path store: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.file); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("persisting path store: %w", err)
	}

	s.log.Debug("path store persisted", "file", s.file, "entries", len(s.dirs))
	return nil
}

func (s *Store) contains(dir string) bool {
	for _, d := range s.dirs {
		if d == dir {
			return true
		}
	}
	return false
}
