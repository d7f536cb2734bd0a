// Package batch enumerates the style sheets of a build into a
// compiler.Batch.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/illusionfield/scssc/internal/config"
	ocp_fs "github.com/illusionfield/scssc/internal/fs"
	"github.com/illusionfield/scssc/internal/fs/mountfs"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/pkg/compiler"
)

// DefaultExcluded are never part of a build.
var DefaultExcluded = []string{"node_modules", ".*"}

var included = []string{"*.scss", "*.sass"}

// Loader builds batches from the application root and the configured
// packages.
type Loader struct {
	cfg   *config.Config
	log   *logging.Logger
	debug bool
}

func New(cfg *config.Config) *Loader {
	return &Loader{cfg: cfg, log: logging.Nop()}
}

func (l *Loader) WithLogger(log *logging.Logger) *Loader {
	l.log = log
	return l
}

// WithDebug traces every file system access of the walk.
func (l *Loader) WithDebug(debug bool) *Loader {
	l.debug = debug
	return l
}

// Dirs returns the directories a batch is read from: the application root
// first, then the packages in name order.
func (l *Loader) Dirs() []string {
	dirs := []string{l.cfg.Root()}
	for _, name := range l.packageNames() {
		dirs = append(dirs, l.cfg.Packages[name])
	}
	return dirs
}

func (l *Loader) packageNames() []string {
	return slices.Sorted(maps.Keys(l.cfg.Packages))
}

// Load walks every mount and returns the batch of all .scss and .sass files.
func (l *Loader) Load(ctx context.Context) (compiler.Batch, error) {
	roots, fsys, err := l.mount()
	if err != nil {
		return nil, err
	}

	batch := compiler.Batch{}
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		pkg, rest, ok := mountfs.Split(name)
		if !ok {
			return nil
		}

		bs, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		f := &compiler.File{
			PathInPackage: rest,
			SourceRoot:    roots[pkg],
			PackageName:   pkg,
			Extension:     strings.TrimPrefix(path.Ext(rest), "."),
			DisplayPath:   DisplayPath(pkg, rest),
			Hash:          hash(bs),
			Contents:      bs,
		}
		f.Options = l.cfg.OptionsFor(f.DisplayPath, rest)
		batch[f.Key()] = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Debugf("loaded %d style sheets from %d mounts", len(batch), len(roots))
	return batch, nil
}

// mount builds the namespace file system. Mounts without style sheets are
// left out.
func (l *Loader) mount() (map[string]string, fs.FS, error) {
	roots := map[string]string{"": l.cfg.Root()}
	for name, dir := range l.cfg.Packages {
		roots[name] = dir
	}

	mounts := make(map[string]fs.FS, len(roots))
	for pkg, dir := range roots {
		excluded := slices.Concat(DefaultExcluded, l.cfg.Exclude)
		if pkg == "" {
			excluded = append(excluded, l.nested(dir)...)
		}

		filtered, err := ocp_fs.NewFilterFS(os.DirFS(dir), included, excluded)
		if err != nil {
			return nil, nil, err
		}

		ok, err := ocp_fs.FSContainsFiles(filtered, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		if !ok {
			if pkg != "" {
				l.log.Debugf("package %s has no style sheets in %s", pkg, dir)
			}
			continue
		}

		var fsys fs.FS = filtered
		if l.debug {
			fsys = ocp_fs.NewTraceFS(filtered, l.log.With("mount", mountfs.Dir(pkg)))
		}
		mounts[pkg] = fsys
	}

	return roots, mountfs.New(mounts), nil
}

// nested returns the package, output and cache directories below the
// application root as root-relative paths, so the application mount does
// not see them twice.
func (l *Loader) nested(root string) []string {
	dirs := []string{l.cfg.OutDir}
	for _, dir := range l.cfg.Packages {
		dirs = append(dirs, dir)
	}

	var rel []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		r, err := filepath.Rel(root, dir)
		if err != nil || r == "." || strings.HasPrefix(r, "..") {
			continue
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel
}

// DisplayPath is how a file is named in messages and artifacts:
// "<path>" for the application, "packages/<name>/<path>" for packages.
func DisplayPath(pkg, pathInPackage string) string {
	if pkg == "" {
		return pathInPackage
	}
	return path.Join("packages", pkg, pathInPackage)
}

func hash(bs []byte) string {
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])
}
