// Package storage removes note attachment files from the attachment root.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidRef is returned for references that name no file, such as an
// empty string or "/". Every other reference is confined under the root.
var ErrInvalidRef = errors.New("attachment reference names no file")

// FileStore resolves attachment references against a root directory.
type FileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore roots a store at dir on the OS filesystem.
func NewFileStore(dir string) *FileStore {
	return NewFileStoreWithFs(afero.NewOsFs(), dir)
}

func NewFileStoreWithFs(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, root: filepath.Clean(dir)}
}

// Resolve maps an attachment reference to a path under the root. Leading
// slashes and ".." segments cannot climb above the root.
func (s *FileStore) Resolve(ref string) (string, error) {
	rel := filepath.Clean("/" + strings.TrimSpace(ref))
	if rel == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, rel), nil
}

// Delete removes one attachment. A file that is already gone counts as
// deleted.
func (s *FileStore) Delete(ref string) error {
	path, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", ref, err)
	}
	return nil
}

// DeleteAll removes every attachment and returns the references that could
// not be removed along with the joined errors.
func (s *FileStore) DeleteAll(refs []string) ([]string, error) {
	var failed []string
	var errs []error
	for _, ref := range refs {
		if err := s.Delete(ref); err != nil {
			failed = append(failed, ref)
			errs = append(errs, err)
		}
	}
	return failed, errors.Join(errs...)
}
