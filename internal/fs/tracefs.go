package fs

import (
	"io/fs"

	"github.com/illusionfield/scssc/internal/logging"
)

// TraceFS logs every open of the wrapped file system at debug level.
type TraceFS struct {
	fsys fs.FS
	log  *logging.Logger
}

func NewTraceFS(fsys fs.FS, log *logging.Logger) *TraceFS {
	return &TraceFS{fsys: fsys, log: log}
}

func (t *TraceFS) Open(name string) (fs.File, error) {
	f, err := t.fsys.Open(name)
	if err != nil {
		t.log.Debugf("open %s: %v", name, err)
		return nil, err
	}

	fi, err := f.Stat()
	switch {
	case err != nil:
		t.log.Debugf("open %s: stat: %v", name, err)
	case fi.IsDir():
		t.log.Debugf("open %s: dir", name)
	default:
		t.log.Debugf("open %s: size=%d", name, fi.Size())
	}
	return f, nil
}

func (t *TraceFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(t.fsys, name)
	if err != nil {
		t.log.Debugf("readdir %s: %v", name, err)
		return nil, err
	}
	t.log.Debugf("readdir %s: %d entries", name, len(entries))
	return entries, nil
}
