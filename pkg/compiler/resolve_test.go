package compiler

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/illusionfield/scssc/internal/test/tempfs"
)

func TestCandidates(t *testing.T) {
	cases := []struct {
		note string
		base string
		ext  string
		exp  []string
	}{
		{
			note: "scss importer",
			base: "{}/a/b",
			ext:  "scss",
			exp: []string{
				"{}/a/b.scss", "{}/a/b.sass", "{}/a/b.css",
				"{}/a/_b.scss", "{}/a/_b.sass", "{}/a/_b.css",
				"{}/a/b/index.scss", "{}/a/b/_index.scss",
				"{}/a/b/index.sass", "{}/a/b/_index.sass",
				"{}/a/b/index.css", "{}/a/b/_index.css",
			},
		},
		{
			note: "sass importer",
			base: "{}/b",
			ext:  "sass",
			exp: []string{
				"{}/b.sass", "{}/b.scss", "{}/b.css",
				"{}/_b.sass", "{}/_b.scss", "{}/_b.css",
				"{}/b/index.sass", "{}/b/_index.sass",
				"{}/b/index.scss", "{}/b/_index.scss",
				"{}/b/index.css", "{}/b/_index.css",
			},
		},
		{
			note: "already a partial",
			base: "{}/_b",
			ext:  "scss",
			exp: []string{
				"{}/_b.scss", "{}/_b.sass", "{}/_b.css",
				"{}/_b/index.scss", "{}/_b/_index.scss",
				"{}/_b/index.sass", "{}/_b/_index.sass",
				"{}/_b/index.css", "{}/_b/_index.css",
			},
		},
		{
			note: "literal extension",
			base: "{ui}/x/b.scss",
			ext:  "scss",
			exp:  []string{"{ui}/x/b.scss", "{ui}/x/_b.scss"},
		},
		{
			note: "literal partial",
			base: "/real/_b.css",
			ext:  "scss",
			exp:  []string{"/real/_b.css"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			if diff := cmp.Diff(tc.exp, candidates(tc.base, tc.ext)); diff != "" {
				t.Fatalf("unexpected candidates (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	files := map[string]string{
		"app/client/main.scss":                          `@import "vars";`,
		"app/client/_vars.scss":                         `$a: 1;`,
		"app/client/theme/_index.scss":                  `$t: 1;`,
		"app/node_modules/bootstrap/scss/_grid.scss":    `.row {}`,
		"packages/ui/styles/_mixins.scss":               `@mixin m {}`,
		"packages/ui/styles/_colors.scss":               `$c: red;`,
		"inc/_lib.scss":                                 `$l: 1;`,
		"app/client/both.scss":                          `a {}`,
		"app/client/_both.scss":                         `b {}`,
		"app/client/dir.scss/placeholder-for-directory": ``,
	}

	tempfs.WithTempFS(t, files, func(t *testing.T, root string) {
		appRoot := filepath.Join(root, "app")
		uiRoot := filepath.Join(root, "packages", "ui")

		main := &File{PathInPackage: "client/main.scss", SourceRoot: appRoot}
		batch := NewBatch(
			main,
			&File{PathInPackage: "client/_vars.scss", SourceRoot: appRoot},
			&File{PathInPackage: "client/both.scss", SourceRoot: appRoot},
			&File{PathInPackage: "client/_both.scss", SourceRoot: appRoot},
			&File{PathInPackage: "styles/_mixins.scss", SourceRoot: uiRoot, PackageName: "ui"},
		)

		vars := filepath.Join(appRoot, "client", "_vars.scss")
		mixins := filepath.Join(uiRoot, "styles", "_mixins.scss")

		r := NewResolver(main, batch, []string{filepath.Join(root, "inc")}, nil)

		cases := []struct {
			note       string
			spec       string
			containing string
			exp        Resolution
			notFound   bool
		}{
			{note: "relative to root", spec: "vars", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "relative with partial name", spec: "_vars", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "literal extension", spec: "vars.scss", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "percent encoded", spec: "va%72s", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "namespaced", spec: "{ui}/styles/mixins", exp: Resolution{Path: mixins, Key: "{ui}/styles/_mixins.scss"}},
			{note: "meteor colon", spec: "meteor:{ui}/styles/mixins", exp: Resolution{Path: mixins, Key: "{ui}/styles/_mixins.scss"}},
			{note: "meteor slash app", spec: "meteor/client/vars", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "app absolute", spec: "/client/vars", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{note: "app namespace", spec: "{}/client/vars", exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{
				note: "tilde into node_modules",
				spec: "~bootstrap/scss/grid",
				exp:  Resolution{Path: filepath.Join(appRoot, "node_modules", "bootstrap", "scss", "_grid.scss")},
			},
			{
				note: "index file",
				spec: "theme",
				exp:  Resolution{Path: filepath.Join(appRoot, "client", "theme", "_index.scss")},
			},
			{note: "file URL", spec: PathToFileURL(vars), exp: Resolution{Path: vars, Key: "{}/client/_vars.scss"}},
			{
				note:       "relative to containing package file, on disk only",
				spec:       "colors",
				containing: PathToFileURL(mixins),
				exp:        Resolution{Path: filepath.Join(uiRoot, "styles", "_colors.scss")},
			},
			{
				note: "include path",
				spec: "lib",
				exp:  Resolution{Path: filepath.Join(root, "inc", "_lib.scss")},
			},
			{note: "non-partial before partial", spec: "both", exp: Resolution{Path: filepath.Join(appRoot, "client", "both.scss"), Key: "{}/client/both.scss"}},
			{note: "directories are not files", spec: "dir", notFound: true},
			{note: "missing", spec: "missing", notFound: true},
			{note: "missing file URL skips include paths", spec: PathToFileURL(filepath.Join(appRoot, "lib")), notFound: true},
		}

		for _, tc := range cases {
			t.Run(tc.note, func(t *testing.T) {
				res, ok := r.Resolve(tc.spec, tc.containing)
				if tc.notFound {
					if ok {
						t.Fatalf("expected no match, got %+v", res)
					}
					return
				}
				if !ok {
					t.Fatal("expected a match")
				}
				if diff := cmp.Diff(tc.exp, res); diff != "" {
					t.Fatalf("unexpected resolution (-want, +got):\n%s", diff)
				}
			})
		}
	})
}

func TestResolveParentDirectory(t *testing.T) {
	files := map[string]string{
		"app/main.scss":                   `@import "../shared/vars";`,
		"app/shared/_vars.scss":           `$wrong: 1;`,
		"shared/_vars.scss":               `$a: 1;`,
		"packages/ui/ui.scss":             `@import "../common/colors";`,
		"packages/ui/styles/theme.scss":   `@import "../../common/colors";`,
		"packages/common/_colors.scss":    `$c: red;`,
		"packages/ui/common/_colors.scss": `$wrong: red;`,
	}

	tempfs.WithTempFS(t, files, func(t *testing.T, root string) {
		appRoot := filepath.Join(root, "app")
		uiRoot := filepath.Join(root, "packages", "ui")

		main := &File{PathInPackage: "main.scss", SourceRoot: appRoot}
		ui := &File{PathInPackage: "ui.scss", SourceRoot: uiRoot, PackageName: "ui"}
		theme := &File{PathInPackage: "styles/theme.scss", SourceRoot: uiRoot, PackageName: "ui"}
		batch := NewBatch(main, ui, theme)

		vars := filepath.Join(root, "shared", "_vars.scss")
		colors := filepath.Join(root, "packages", "common", "_colors.scss")

		cases := []struct {
			note       string
			root       *File
			spec       string
			containing string
			exp        string
		}{
			{note: "app root, entry point", root: main, spec: "../shared/vars", exp: vars},
			{note: "app root, containing file", root: main, spec: "../shared/vars", containing: PathToFileURL(main.RealPath()), exp: vars},
			{note: "package root", root: ui, spec: "../common/colors", exp: colors},
			{note: "nested package file", root: theme, spec: "../../common/colors", containing: PathToFileURL(theme.RealPath()), exp: colors},
			{note: "inside the namespace", root: theme, spec: "../common/colors", containing: PathToFileURL(theme.RealPath()), exp: filepath.Join(uiRoot, "common", "_colors.scss")},
		}

		for _, tc := range cases {
			t.Run(tc.note, func(t *testing.T) {
				res, ok := NewResolver(tc.root, batch, nil, nil).Resolve(tc.spec, tc.containing)
				if !ok {
					t.Fatal("expected a match")
				}
				if diff := cmp.Diff(Resolution{Path: tc.exp}, res); diff != "" {
					t.Fatalf("unexpected resolution (-want, +got):\n%s", diff)
				}
			})
		}
	})
}

func TestResolvePrefersBatch(t *testing.T) {
	main := &File{PathInPackage: "main.scss", SourceRoot: "/nonexistent"}
	batch := NewBatch(main, &File{PathInPackage: "_vars.scss", SourceRoot: "/nonexistent"})

	stat := func(string) (fs.FileInfo, error) {
		t.Fatal("batch hit must not touch the file system")
		return nil, nil
	}

	res, ok := NewResolver(main, batch, nil, stat).Resolve("_vars", "")
	if !ok {
		t.Fatal("expected a match")
	}
	if exp, act := "{}/_vars.scss", res.Key; exp != act {
		t.Fatalf("expected %q, got %q", exp, act)
	}
}

func TestResolveFlakyStat(t *testing.T) {
	main := &File{PathInPackage: "main.scss", SourceRoot: "/nonexistent"}
	batch := NewBatch(main)

	stats := map[string]func(string) (fs.FileInfo, error){
		"error": func(string) (fs.FileInfo, error) { return nil, errors.New("EACCES") },
		"panic": func(string) (fs.FileInfo, error) { panic("boom") },
		"nil":   func(string) (fs.FileInfo, error) { return nil, nil },
	}

	for note, stat := range stats {
		t.Run(note, func(t *testing.T) {
			if res, ok := NewResolver(main, batch, []string{"/inc"}, stat).Resolve("vars", ""); ok {
				t.Fatalf("expected no match, got %+v", res)
			}
		})
	}
}

func TestFindFileURL(t *testing.T) {
	main := &File{PathInPackage: "main.scss", SourceRoot: "/src"}
	vars := &File{PathInPackage: "_vars.scss", SourceRoot: "/src"}
	r := NewResolver(main, NewBatch(main, vars), nil, nil)

	u, ok := r.FindFileURL("vars", PathToFileURL(main.RealPath()))
	if !ok {
		t.Fatal("expected a match")
	}
	if exp := PathToFileURL(vars.RealPath()); u != exp {
		t.Fatalf("expected %q, got %q", exp, u)
	}
}
