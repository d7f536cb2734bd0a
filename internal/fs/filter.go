package fs

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/gobwas/glob"
)

// FilterFS hides files of an underlying fs.FS. A path is hidden if it matches
// any excluded pattern; files (not directories) are also hidden unless they
// match an included pattern, when any are given. Patterns are gobwas globs
// over slash-separated paths relative to the root of the file system, and a
// pattern also matches on the base name alone.
type FilterFS struct {
	fsys     fs.FS
	included []glob.Glob
	excluded []glob.Glob
}

var (
	_ fs.ReadDirFS = (*FilterFS)(nil)
	_ fs.StatFS    = (*FilterFS)(nil)
)

func NewFilterFS(fsys fs.FS, included, excluded []string) (*FilterFS, error) {
	in, err := compileGlobs(included)
	if err != nil {
		return nil, err
	}
	ex, err := compileGlobs(excluded)
	if err != nil {
		return nil, err
	}
	return &FilterFS{fsys: fsys, included: in, excluded: ex}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	gs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("failed to compile file pattern %q: %w", p, err)
		}
		gs = append(gs, g)
	}
	return gs, nil
}

func (f *FilterFS) Open(name string) (fs.File, error) {
	if err := f.check(name); err != nil {
		return nil, err
	}

	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if !fi.IsDir() && !f.visible(name, false) {
		_ = file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}

func (f *FilterFS) Stat(name string) (fs.FileInfo, error) {
	if err := f.check(name); err != nil {
		return nil, err
	}
	fi, err := fs.Stat(f.fsys, name)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() && !f.visible(name, false) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fi, nil
}

func (f *FilterFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if err := f.check(name); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return nil, err
	}

	visible := entries[:0]
	for _, e := range entries {
		if f.visible(path.Join(name, e.Name()), e.IsDir()) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// check rejects invalid paths and paths below an excluded directory.
func (f *FilterFS) check(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for p := name; p != "."; p = path.Dir(p) {
		if matchAny(f.excluded, p) {
			return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
	}
	return nil
}

func (f *FilterFS) visible(name string, dir bool) bool {
	if matchAny(f.excluded, name) {
		return false
	}
	return dir || len(f.included) == 0 || matchAny(f.included, name)
}

func matchAny(gs []glob.Glob, name string) bool {
	base := path.Base(name)
	for _, g := range gs {
		if g.Match(name) || g.Match(base) {
			return true
		}
	}
	return false
}
