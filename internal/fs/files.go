package fs

import (
	"errors"
	"io/fs"
)

var errFound = errors.New("found")

// FSContainsFiles reports whether fsys holds at least one file accepted by
// keep. A nil keep accepts every file. A missing root counts as empty.
func FSContainsFiles(fsys fs.FS, keep func(name string) bool) (bool, error) {
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (keep == nil || keep(name)) {
			return errFound
		}
		return nil
	})
	switch {
	case errors.Is(err, errFound):
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}
