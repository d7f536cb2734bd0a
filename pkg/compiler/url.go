package compiler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// PathToFileURL turns a real path into a file: URL.
func PathToFileURL(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // windows drive letters
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// FileURLToPath returns the real path of a file: URL, undoing the escaping
// and separator normalization applied by PathToFileURL. Bare absolute paths
// are accepted as well.
func FileURLToPath(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	switch u.Scheme {
	case "file":
		p := u.Path
		if len(p) > 2 && p[0] == '/' && p[2] == ':' {
			p = p[1:] // "/C:/x" on windows
		}
		return filepath.Clean(filepath.FromSlash(p)), true
	case "":
		if filepath.IsAbs(s) {
			return filepath.Clean(s), true
		}
	}
	return "", false
}

func decodeSpecifier(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}
