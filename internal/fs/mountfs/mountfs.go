// Package mountfs combines file systems under namespace directories: the
// application is mounted at "{}" and every package at "{name}". Paths below
// a mount are handed to the mounted file system unchanged.
package mountfs

import (
	"io"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"
)

// MountFS is read-only once built and safe for concurrent use.
type MountFS struct {
	mounts map[string]fs.FS
	names  []string
}

var (
	_ fs.ReadDirFS = (*MountFS)(nil)
	_ fs.StatFS    = (*MountFS)(nil)
)

// New mounts every file system in m under Dir(key). The empty key is the
// application.
func New(m map[string]fs.FS) *MountFS {
	return &MountFS{
		mounts: maps.Clone(m),
		names:  slices.Sorted(maps.Keys(m)),
	}
}

// Dir is the directory a package is mounted at.
func Dir(pkg string) string {
	return "{" + pkg + "}"
}

// Split separates a mount path into the package and the path inside it
// ("." for the mount directory itself).
func Split(name string) (pkg, rest string, ok bool) {
	if !strings.HasPrefix(name, "{") {
		return "", "", false
	}
	dir, rest, _ := strings.Cut(name, "/")
	if !strings.HasSuffix(dir, "}") {
		return "", "", false
	}
	if rest == "" {
		rest = "."
	}
	return dir[1 : len(dir)-1], rest, true
}

// Packages lists the mounted package names in order, "" first if mounted.
func (m *MountFS) Packages() []string {
	return slices.Clone(m.names)
}

func (m *MountFS) Open(name string) (fs.File, error) {
	if name == "." {
		return &rootDir{entries: m.entries()}, nil
	}
	fsys, rest, err := m.lookup("open", name)
	if err != nil {
		return nil, err
	}
	return fsys.Open(rest)
}

func (m *MountFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == "." {
		return m.entries(), nil
	}
	fsys, rest, err := m.lookup("readdir", name)
	if err != nil {
		return nil, err
	}
	return fs.ReadDir(fsys, rest)
}

func (m *MountFS) Stat(name string) (fs.FileInfo, error) {
	if name == "." {
		return &mountInfo{name: "."}, nil
	}
	fsys, rest, err := m.lookup("stat", name)
	if err != nil {
		return nil, err
	}
	if rest == "." {
		return &mountInfo{name: name}, nil
	}
	return fs.Stat(fsys, rest)
}

func (m *MountFS) lookup(op, name string) (fs.FS, string, error) {
	if !fs.ValidPath(name) {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	pkg, rest, ok := Split(name)
	if !ok {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	fsys, ok := m.mounts[pkg]
	if !ok {
		return nil, "", &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return fsys, rest, nil
}

func (m *MountFS) entries() []fs.DirEntry {
	list := make([]fs.DirEntry, len(m.names))
	for i, pkg := range m.names {
		list[i] = &mountInfo{name: Dir(pkg)}
	}
	return list
}

// mountInfo describes a synthesized directory.
type mountInfo struct{ name string }

func (i *mountInfo) Name() string               { return i.name }
func (*mountInfo) Size() int64                  { return 0 }
func (*mountInfo) Mode() fs.FileMode            { return fs.ModeDir | 0o555 }
func (*mountInfo) Type() fs.FileMode            { return fs.ModeDir }
func (*mountInfo) ModTime() time.Time           { return time.Time{} }
func (*mountInfo) IsDir() bool                  { return true }
func (*mountInfo) Sys() any                     { return nil }
func (i *mountInfo) Info() (fs.FileInfo, error) { return i, nil }

func (i *mountInfo) String() string {
	return fs.FormatFileInfo(i)
}

// rootDir is the synthesized "." holding one directory per mount.
type rootDir struct {
	entries []fs.DirEntry
	offset  int
}

func (*rootDir) Stat() (fs.FileInfo, error) { return &mountInfo{name: "."}, nil }
func (*rootDir) Close() error               { return nil }
func (*rootDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: fs.ErrInvalid}
}

func (d *rootDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entries) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := d.entries[d.offset : d.offset+n]
	d.offset += n
	return list, nil
}
