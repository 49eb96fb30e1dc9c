package launcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/razvandimescu/markview/internal/apperr"
)

// markdownExt is the only extension accepted for edit targets. The match is
// case sensitive.
const markdownExt = ".md"

// EnsureFile validates path as an editable Markdown file. A missing file is
// created empty (with its parent directories) when createMissing is set and
// reported as apperr.ErrNotFound otherwise. created reports whether the
// file was created by this call.
func EnsureFile(path string, createMissing bool) (created bool, err error) {
	if filepath.Ext(path) != markdownExt {
		return false, fmt.Errorf("%w: %s is not a markdown file", apperr.ErrInvalidInput, path)
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return false, fmt.Errorf("%w: %s is a directory", apperr.ErrInvalidInput, path)
		}
		return false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("%w: %w", apperr.ErrIO, err)
	case !createMissing:
		return false, fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("%w: create parent directory: %w", apperr.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: create file: %w", apperr.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("%w: %w", apperr.ErrIO, err)
	}
	return true, nil
}
