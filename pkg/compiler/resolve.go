package compiler

import (
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	ocp_fs "github.com/illusionfield/scssc/internal/fs"
)

var styleExtensions = []string{"scss", "sass", "css"}

var (
	tildeImport  = regexp.MustCompile(`^.*~([^/])`)
	meteorImport = regexp.MustCompile(`^meteor[:/]`)
)

// Resolution is where an import specifier points to.
type Resolution struct {
	Path string // absolute real path
	Key  string // namespace key, empty if the file is not part of the batch
}

// Resolver maps import specifiers written inside one root's import graph to
// files. It is built per root compile and is safe for concurrent use.
type Resolver struct {
	root         *File
	batch        Batch
	byPath       map[string]string
	pkgRoots     map[string]string
	includePaths []string
	stat         ocp_fs.StatFunc
}

// NewResolver returns a resolver for imports reachable from root. A nil stat
// probes the local file system.
func NewResolver(root *File, batch Batch, includePaths []string, stat ocp_fs.StatFunc) *Resolver {
	return &Resolver{
		root:         root,
		batch:        batch,
		byPath:       batch.byRealPath(),
		pkgRoots:     batch.packageRoots(),
		includePaths: includePaths,
		stat:         stat,
	}
}

// FindFileURL implements Importer.
func (r *Resolver) FindFileURL(specifier, containingURL string) (string, bool) {
	res, ok := r.Resolve(specifier, containingURL)
	if !ok {
		return "", false
	}
	return PathToFileURL(res.Path), true
}

// Tracked implements Tracker.
func (r *Resolver) Tracked(fileURL string) bool {
	p, ok := FileURLToPath(fileURL)
	if !ok {
		return false
	}
	_, ok = r.byPath[p]
	return ok
}

// Resolve finds the file an import specifier refers to. The containing URL
// is the file the import is written in; when empty, relative imports are
// resolved against the root's directory. Resolve never fails loudly: a
// specifier matching nothing yields false and the engine reports it.
func (r *Resolver) Resolve(specifier, containingURL string) (Resolution, bool) {
	spec := decodeSpecifier(specifier)
	dir, ext := r.context(containingURL)

	if res, ok := r.find(r.normalize(spec, dir), ext); ok {
		return res, true
	}

	if strings.HasPrefix(spec, "file:") {
		return Resolution{}, false
	}
	for _, inc := range r.includePaths {
		base := filepath.ToSlash(filepath.Join(inc, filepath.FromSlash(spec)))
		if res, ok := r.find(base, ext); ok {
			return res, true
		}
	}

	return Resolution{}, false
}

// context returns the directory relative imports start from and the
// extension tried first.
func (r *Resolver) context(containingURL string) (dir, ext string) {
	dir, ext = path.Dir(r.root.Key()), r.root.ext()
	if containingURL == "" {
		return dir, ext
	}

	p, ok := FileURLToPath(containingURL)
	if !ok {
		return dir, ext
	}
	if e := strings.TrimPrefix(filepath.Ext(p), "."); e == "scss" || e == "sass" {
		ext = e
	}
	if key, ok := r.byPath[p]; ok {
		return path.Dir(key), ext
	}
	return path.Dir(filepath.ToSlash(p)), ext
}

// normalize rewrites the specifier into either a namespace path ("{pkg}/…")
// or a real path. A relative specifier climbing out of its namespace becomes
// a real path below the namespace's source root.
func (r *Resolver) normalize(spec, dir string) string {
	switch {
	case strings.HasPrefix(spec, "file:"):
		if p, ok := FileURLToPath(spec); ok {
			return filepath.ToSlash(p)
		}
		return spec
	case tildeImport.MatchString(spec):
		return tildeImport.ReplaceAllString(spec, "{}/node_modules/$1")
	case meteorImport.MatchString(spec):
		rest := meteorImport.ReplaceAllString(spec, "")
		if isNamespaced(rest) {
			return rest
		}
		return "{}/" + strings.TrimPrefix(rest, "/")
	case isNamespaced(spec):
		return spec
	case strings.HasPrefix(spec, "/") && !strings.HasPrefix(spec, "//"):
		return "{}" + spec
	default:
		pkg, rest, ok := SplitKey(dir)
		if !ok {
			return path.Join(dir, spec)
		}
		joined := path.Join(rest, spec)
		if joined != ".." && !strings.HasPrefix(joined, "../") {
			return "{" + pkg + "}/" + joined
		}
		real := filepath.Join(r.sourceRoot(pkg), filepath.FromSlash(rest), filepath.FromSlash(spec))
		return filepath.ToSlash(real)
	}
}

// sourceRoot is the directory files of a namespace live in.
func (r *Resolver) sourceRoot(pkg string) string {
	if root, ok := r.pkgRoots[pkg]; ok {
		return root
	}
	return r.root.SourceRoot
}

func (r *Resolver) find(base, ext string) (Resolution, bool) {
	for _, c := range candidates(base, ext) {
		if res, ok := r.probe(c); ok {
			return res, true
		}
	}
	return Resolution{}, false
}

// probe checks a single candidate: first the batch, then the disk.
func (r *Resolver) probe(candidate string) (Resolution, bool) {
	if pkg, rest, ok := SplitKey(candidate); ok {
		if f, ok := r.batch[candidate]; ok {
			return Resolution{Path: f.RealPath(), Key: candidate}, true
		}

		real := filepath.Join(r.sourceRoot(pkg), filepath.FromSlash(rest))
		if ocp_fs.FileExists(r.stat, real) {
			return Resolution{Path: real, Key: r.byPath[real]}, true
		}
		return Resolution{}, false
	}

	real := filepath.FromSlash(candidate)
	if !filepath.IsAbs(real) {
		real = filepath.Join(r.root.SourceRoot, real)
	}
	real = filepath.Clean(real)
	if key, ok := r.byPath[real]; ok {
		return Resolution{Path: real, Key: key}, true
	}
	if ocp_fs.FileExists(r.stat, real) {
		return Resolution{Path: real}, true
	}
	return Resolution{}, false
}

// candidates lists the files one import may refer to, in the order they are
// tried: extensions (the importer's own first), then their underscore
// partials, then directory index files.
func candidates(base, ext string) []string {
	if hasStyleExtension(base) {
		files := []string{base}
		if !isPartial(base) {
			files = append(files, underscored(base))
		}
		return files
	}

	var files, index []string
	for _, e := range extensionOrder(ext) {
		files = append(files, base+"."+e)
		index = append(index, base+"/index."+e, base+"/_index."+e)
	}
	for _, f := range files {
		if !isPartial(f) {
			files = append(files, underscored(f))
		}
	}
	return append(files, index...)
}

func extensionOrder(ext string) []string {
	if !slices.Contains(styleExtensions, ext) {
		return styleExtensions
	}
	order := []string{ext}
	for _, e := range styleExtensions {
		if e != ext {
			order = append(order, e)
		}
	}
	return order
}

func hasStyleExtension(p string) bool {
	return slices.Contains(styleExtensions, strings.TrimPrefix(path.Ext(p), "."))
}

func underscored(p string) string {
	return path.Join(path.Dir(p), "_"+path.Base(p))
}
