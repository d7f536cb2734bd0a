// Package tempfs creates throwaway file trees for tests.
package tempfs

import (
	"os"
	"path/filepath"
	"testing"
)

// WithTempFS writes files (slash-separated path -> contents) below a fresh
// temporary directory and calls f with its path. The directory is removed
// when the test ends.
func WithTempFS(t *testing.T, files map[string]string, f func(*testing.T, string)) {
	t.Helper()

	root := t.TempDir()
	for name, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	f(t, root)
}
