package compiler

import (
	"cmp"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Registration describes which inputs a host should hand to this compiler.
type Registration struct {
	Extensions   []string
	ArchMatching string
}

// Plugin is the registration of the Sass compiler: both syntaxes, web
// targets only.
var Plugin = Registration{
	Extensions:   []string{"scss", "sass"},
	ArchMatching: "web",
}

// File is a style sheet as seen by the host build: a path inside a package
// (or the application) plus the real directory that path is relative to.
type File struct {
	PathInPackage string
	SourceRoot    string
	PackageName   string // empty for application files
	Extension     string // "scss" or "sass", derived from the path if empty
	Options       map[string]any
	Hash          string
	DisplayPath   string
	Contents      []byte
}

// Key returns the namespace key of the file, e.g. "{}/client/main.scss" for
// application files or "{ui}/styles/_vars.scss" for package files.
func (f *File) Key() string {
	return NamespaceKey(f.PackageName, f.PathInPackage)
}

// RealPath returns the location of the file on disk.
func (f *File) RealPath() string {
	return filepath.Join(f.SourceRoot, filepath.FromSlash(f.PathInPackage))
}

func (f *File) ext() string {
	if f.Extension != "" {
		return f.Extension
	}
	return strings.TrimPrefix(path.Ext(f.PathInPackage), ".")
}

func (f *File) displayPath() string {
	return cmp.Or(f.DisplayPath, f.PathInPackage)
}

// NamespaceKey builds the key a file is known by inside a Batch.
func NamespaceKey(pkg, pathInPackage string) string {
	return "{" + pkg + "}/" + strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(pathInPackage)), "/")
}

// SplitKey is the inverse of NamespaceKey.
func SplitKey(key string) (pkg, pathInPackage string, ok bool) {
	if !strings.HasPrefix(key, "{") {
		return "", "", false
	}
	end := strings.Index(key, "}")
	if end < 0 {
		return "", "", false
	}
	return key[1:end], strings.TrimPrefix(key[end+1:], "/"), true
}

func isNamespaced(p string) bool {
	_, _, ok := SplitKey(p)
	return ok
}

// Batch is every file the host presents for one compilation pass, indexed by
// namespace key. It is only read while roots compile.
type Batch map[string]*File

// NewBatch indexes files by their namespace keys.
func NewBatch(files ...*File) Batch {
	b := make(Batch, len(files))
	for _, f := range files {
		b[f.Key()] = f
	}
	return b
}

// Keys returns the namespace keys of the batch with application files
// first, then packages by name, each ordered by path in package.
func (b Batch) Keys() []string {
	return slices.SortedFunc(maps.Keys(b), CompareKeys)
}

// CompareKeys orders namespace keys application first, then by package name
// and path in package.
func CompareKeys(a, b string) int {
	pa, ra, _ := SplitKey(a)
	pb, rb, _ := SplitKey(b)
	if (pa == "") != (pb == "") {
		if pa == "" {
			return -1
		}
		return 1
	}
	return cmp.Or(strings.Compare(pa, pb), strings.Compare(ra, rb))
}

// byRealPath builds the reverse index from real paths to namespace keys.
func (b Batch) byRealPath() map[string]string {
	m := make(map[string]string, len(b))
	for key, f := range b {
		m[f.RealPath()] = key
	}
	return m
}

// packageRoots maps package names to the source root of their files.
func (b Batch) packageRoots() map[string]string {
	m := make(map[string]string)
	for _, f := range b {
		if _, ok := m[f.PackageName]; !ok {
			m[f.PackageName] = f.SourceRoot
		}
	}
	return m
}

// CompileResult is what a root compiles to.
type CompileResult struct {
	CSS       string
	SourceMap *SourceMap
}

// Output is a compiled root plus the files that went into it.
type Output struct {
	Result CompileResult

	// ReferencedImportPaths lists the namespace keys of every batch file
	// read while compiling, the root first, without duplicates.
	ReferencedImportPaths []string

	// LoadedURLs is the engine's raw list of loaded files.
	LoadedURLs []string

	// Untracked are real paths that were loaded but are not in the batch.
	Untracked []string
}

// Stylesheet is the artifact a host registers for a compiled root.
type Stylesheet struct {
	Path      string
	Data      string
	SourceMap *SourceMap
}

// Stylesheet returns the artifact for root f.
func (o *Output) Stylesheet(f *File) Stylesheet {
	return Stylesheet{
		Path:      f.PathInPackage + ".css",
		Data:      o.Result.CSS,
		SourceMap: o.Result.SourceMap,
	}
}
