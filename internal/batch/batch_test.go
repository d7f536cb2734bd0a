package batch_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/illusionfield/scssc/internal/batch"
	"github.com/illusionfield/scssc/internal/config"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/test/tempfs"
)

func TestLoad(t *testing.T) {
	files := map[string]string{
		config.FileName: `{
			"packages": {"ui": "packages/ui", "empty": "packages/empty", "gone": "missing"},
			"exclude": ["legacy"],
			"fileOptions": {"**/theme.scss": {"isImport": true}}
		}`,
		"client/main.scss":                 "body {}",
		"client/_vars.scss":                "$c: red;",
		"client/theme.scss":                "a {}",
		"client/notes.txt":                 "not a style sheet",
		"client/legacy/old.scss":           "old {}",
		"imports/page.sass":                "p\n  color: red",
		"node_modules/lib/_lib.scss":       "lib {}",
		".meteor/local/x.scss":             "x {}",
		".scssc/out/client/main.scss.css":  "body {}",
		"packages/ui/styles/_buttons.scss": "button {}",
		"packages/ui/styles/ui.scss":       `@import "buttons";`,
		"packages/empty/README.md":         "nothing here",
	}

	tempfs.WithTempFS(t, files, func(t *testing.T, root string) {
		cfg := config.Load(root, logging.Nop())
		b, err := batch.New(cfg).Load(t.Context())
		if err != nil {
			t.Fatal(err)
		}

		exp := []string{
			"{}/client/_vars.scss",
			"{}/client/main.scss",
			"{}/client/theme.scss",
			"{}/imports/page.sass",
			"{ui}/styles/_buttons.scss",
			"{ui}/styles/ui.scss",
		}
		if diff := cmp.Diff(exp, b.Keys()); diff != "" {
			t.Fatalf("unexpected batch (-want, +got):\n%s", diff)
		}

		main := b["{}/client/main.scss"]
		if main.SourceRoot != root || main.DisplayPath != "client/main.scss" || main.Extension != "scss" {
			t.Fatalf("unexpected app file: %+v", main)
		}
		if string(main.Contents) != "body {}" {
			t.Fatalf("unexpected contents %q", main.Contents)
		}
		if len(main.Hash) != 64 {
			t.Fatalf("expected sha256 hex hash, got %q", main.Hash)
		}

		ui := b["{ui}/styles/ui.scss"]
		if exp := filepath.Join(root, "packages", "ui"); ui.SourceRoot != exp {
			t.Fatalf("expected source root %q, got %q", exp, ui.SourceRoot)
		}
		if exp := "packages/ui/styles/ui.scss"; ui.DisplayPath != exp {
			t.Fatalf("expected display path %q, got %q", exp, ui.DisplayPath)
		}
		if ui.RealPath() != filepath.Join(root, "packages", "ui", "styles", "ui.scss") {
			t.Fatalf("unexpected real path %q", ui.RealPath())
		}

		if diff := cmp.Diff(map[string]any{"isImport": true}, b["{}/client/theme.scss"].Options); diff != "" {
			t.Fatalf("unexpected options (-want, +got):\n%s", diff)
		}
		if b["{}/imports/page.sass"].Extension != "sass" {
			t.Fatal("expected sass extension")
		}
	})
}

func TestLoadHashChanges(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{"a.scss": "a {}", "b.scss": "a {}"}, func(t *testing.T, root string) {
		b, err := batch.New(config.Load(root, logging.Nop())).Load(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if b["{}/a.scss"].Hash != b["{}/b.scss"].Hash {
			t.Fatal("expected equal contents to hash equally")
		}
	})
}

func TestLoadDebugTrace(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{"main.scss": "a {}"}, func(t *testing.T, root string) {
		var buf bytes.Buffer
		log := logging.NewLogger(logging.Config{Level: logging.Debug, Format: "json", Output: &buf})

		if _, err := batch.New(config.Load(root, log)).WithLogger(log).WithDebug(true).Load(t.Context()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"mount":"{}"`) {
			t.Fatalf("expected traced opens, got %s", buf.String())
		}
	})
}

func TestLoadCanceled(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{"main.scss": "a {}"}, func(t *testing.T, root string) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := batch.New(config.Load(root, logging.Nop())).Load(ctx); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDirs(t *testing.T) {
	tempfs.WithTempFS(t, map[string]string{config.FileName: `{"packages": {"b": "pb", "a": "pa"}}`}, func(t *testing.T, root string) {
		exp := []string{root, filepath.Join(root, "pa"), filepath.Join(root, "pb")}
		if diff := cmp.Diff(exp, batch.New(config.Load(root, logging.Nop())).Dirs()); diff != "" {
			t.Fatalf("unexpected dirs (-want, +got):\n%s", diff)
		}
	})
}

func TestDisplayPath(t *testing.T) {
	if exp, act := "client/a.scss", batch.DisplayPath("", "client/a.scss"); exp != act {
		t.Fatalf("expected %q, got %q", exp, act)
	}
	if exp, act := "packages/ui/a.scss", batch.DisplayPath("ui", "a.scss"); exp != act {
		t.Fatalf("expected %q, got %q", exp, act)
	}
}
