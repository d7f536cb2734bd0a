package fs

import (
	"io/fs"
	"testing/fstest"
)

// MapFS builds an in-memory file system from path -> contents.
func MapFS(m map[string]string) fs.FS {
	m0 := make(fstest.MapFS, len(m))
	for p, data := range m {
		m0[p] = &fstest.MapFile{Data: []byte(data)}
	}
	return m0
}
