package pathstore

import (
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find
// an executable file.
var ErrNotFound = exec.ErrNotFound

func (s *Store) findExecutable(file string) error {
	d, err := s.fs.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// Resolve searches for an executable named file in the store's
// directories, in order; the first hit wins. If file contains a
// slash, it is tried directly and the store is not consulted. The
// result may be an absolute path or a path relative to the current
// directory.
func (s *Store) Resolve(file string) (string, error) {
	if strings.Contains(file, string(filepath.Separator)) {
		if err := s.findExecutable(file); err != nil {
			return "", err
		}
		return file, nil
	}

	for _, dir := range s.dirs {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := s.findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}
