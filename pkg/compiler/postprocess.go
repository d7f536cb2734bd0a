package compiler

import (
	"path/filepath"
	"slices"
	"strings"
)

// referencedFiles maps the engine's loaded URLs back to namespace keys. The
// root always comes first; loaded files follow in engine order, each once.
// Loaded files unknown to the batch are returned as untracked real paths.
func referencedFiles(root *File, loadedURLs []string, byPath map[string]string) (refs, untracked []string) {
	refs = []string{root.Key()}
	seen := map[string]struct{}{root.Key(): {}}

	for _, u := range loadedURLs {
		p, ok := FileURLToPath(u)
		if !ok {
			p = filepath.FromSlash(decodeSpecifier(u))
		}

		key, ok := byPath[p]
		if !ok {
			if !slices.Contains(untracked, p) {
				untracked = append(untracked, p)
			}
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		refs = append(refs, key)
	}

	return refs, untracked
}

func untrackedMessage(paths []string) string {
	return logPrefix + " The following external files were loaded but are not tracked by the project:\n - " +
		strings.Join(paths, "\n - ")
}
