package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/illusionfield/scssc/internal/config"
	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/internal/service"
)

func TestOverrides(t *testing.T) {
	cases := []struct {
		note string
		args []string
		exp  map[string]any
	}{
		{
			note: "nothing set",
			exp:  map[string]any{},
		},
		{
			note: "all set",
			args: []string{"--out", "dist", "--transport", "BUFFER", "--sass", "/bin/sass", "-j", "3", "--cache-file", "c.db"},
			exp: map[string]any{
				"outDir":      "dist",
				"transport":   "buffer",
				"sassBinary":  "/bin/sass",
				"concurrency": 3,
				"cacheFile":   "c.db",
			},
		},
		{
			note: "unrelated flags",
			args: []string{"--no-cache", "--dir", "app"},
			exp:  map[string]any{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			var p buildParams
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			p.register(fs)
			if err := fs.Parse(tc.args); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, p.overrides(fs)); diff != "" {
				t.Fatalf("unexpected overrides (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestInvalidTransportFlag(t *testing.T) {
	var p buildParams
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	p.register(fs)
	if err := fs.Parse([]string{"--transport", "pipe"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRelevant(t *testing.T) {
	cases := map[string]bool{
		"client/main.scss": true,
		"client/page.sass": true,
		"vendor/x.css":     true,
		"client/removed":   true,
		"client/main.js":   false,
		"README.md":        false,
	}
	for name, exp := range cases {
		if act := relevant(name); act != exp {
			t.Errorf("%s: expected %v, got %v", name, exp, act)
		}
	}
}

func TestSkipDir(t *testing.T) {
	root := t.TempDir()
	cfg := config.Load(root, logging.Nop())

	cases := []struct {
		path string
		exp  bool
	}{
		{path: filepath.Join(root, "client"), exp: false},
		{path: filepath.Join(root, "node_modules"), exp: true},
		{path: filepath.Join(root, ".git"), exp: true},
		{path: cfg.OutDir, exp: true},
	}
	for _, tc := range cases {
		if act := skipDir(filepath.Base(tc.path), tc.path, cfg); act != tc.exp {
			t.Errorf("%s: expected %v, got %v", tc.path, tc.exp, act)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	report := &service.Report{
		Roots: []service.RootResult{
			{Key: "{}/a.scss", DisplayPath: "a.scss", Artifact: "/out/a.scss.css", Duration: 12 * time.Millisecond},
			{Key: "{}/b.scss", DisplayPath: "b.scss", Err: errors.New("boom")},
			{Key: "{ui}/c.scss", DisplayPath: "packages/ui/c.scss", Tier: "disk", Artifact: "/out/packages/ui/c.scss.css"},
		},
	}

	var buf bytes.Buffer
	if err := renderSummary(&buf, report); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, exp := range []string{"a.scss.css", "compiled", "failed", "cached (disk)", "packages/ui/c.scss", "12ms"} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected %q in summary:\n%s", exp, out)
		}
	}
}
