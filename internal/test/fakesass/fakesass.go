// Package fakesass provides a deterministic stand-in for the Sass engine.
//
// It understands just enough to exercise import resolution: lines of the
// form
//
//	@import "x";  @use "x";  @forward "x";
//
// are resolved through the request's importer and the imported file is
// inlined. Other lines are copied to the output. A file with unbalanced
// braces (SCSS syntax only) or an @error line fails the compile.
package fakesass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/illusionfield/scssc/pkg/compiler"
)

var importLine = regexp.MustCompile(`^@(import|use|forward)\s+["']?([^"';\s]+)["']?[^;]*;?$`)

// Engine implements compiler.Engine. The zero value is ready to use.
type Engine struct {
	// ReadFile loads imported files; defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)

	mu       sync.Mutex
	requests []compiler.Request
}

func New() *Engine {
	return &Engine{}
}

// Requests returns the requests seen so far, in call order.
func (e *Engine) Requests() []compiler.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.requests)
}

// Calls returns the number of compiles performed.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *Engine) Compile(ctx context.Context, req compiler.Request) (*compiler.Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readFile := e.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	c := &compilation{req: req, readFile: readFile}

	src := req.Source
	if src == "" {
		bs, err := c.read(req.URL)
		if err != nil {
			return nil, err
		}
		src = string(bs)
	}

	if err := c.run(req.URL, src, req.Syntax); err != nil {
		return nil, err
	}

	resp := &compiler.Response{
		CSS:        strings.Join(c.out, "\n"),
		LoadedURLs: c.loaded,
	}
	if req.SourceMap {
		bs, err := json.Marshal(c.sourceMap())
		if err != nil {
			return nil, err
		}
		resp.SourceMap = bs
	}
	return resp, nil
}

type compilation struct {
	req      compiler.Request
	readFile func(string) ([]byte, error)

	stack    []string
	loaded   []string
	sources  []string
	contents []string
	out      []string
}

func (c *compilation) read(fileURL string) ([]byte, error) {
	p, ok := compiler.FileURLToPath(fileURL)
	if !ok {
		return nil, fmt.Errorf("%s: not a file URL", fileURL)
	}
	return c.readFile(p)
}

func (c *compilation) run(fileURL, src string, syntax compiler.Syntax) error {
	if slices.Contains(c.stack, fileURL) {
		return fmt.Errorf("%s: this file is already being loaded", fileURL)
	}
	c.stack = append(c.stack, fileURL)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	c.loaded = append(c.loaded, fileURL)
	if !slices.Contains(c.sources, fileURL) {
		c.sources = append(c.sources, fileURL)
		c.contents = append(c.contents, src)
	}

	if syntax != compiler.SyntaxIndented && strings.Count(src, "{") != strings.Count(src, "}") {
		return fmt.Errorf("%s: expected \"}\"", fileURL)
	}

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRight(line, " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "@error"):
			return errors.New(strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "@error")), `"';`))
		case strings.HasPrefix(trimmed, "@warn"), strings.HasPrefix(trimmed, "@debug"):
		case importLine.MatchString(trimmed):
			if err := c.load(fileURL, importLine.FindStringSubmatch(trimmed)[2], trimmed); err != nil {
				return err
			}
		default:
			c.out = append(c.out, line)
		}
	}
	return nil
}

func (c *compilation) load(containingURL, spec, line string) error {
	if strings.HasPrefix(spec, "sass:") {
		return nil
	}

	var (
		target string
		ok     bool
	)
	if c.req.Importer != nil {
		target, ok = c.req.Importer.FindFileURL(spec, containingURL)
	}
	if !ok {
		if strings.HasSuffix(spec, ".css") || strings.Contains(spec, "://") {
			c.out = append(c.out, line) // plain CSS import
			return nil
		}
		return fmt.Errorf("%s: can't find stylesheet to import: %s", containingURL, spec)
	}

	bs, err := c.read(target)
	if err != nil {
		return err
	}
	return c.run(target, string(bs), compiler.SyntaxForExtension(filepath.Ext(target)))
}

func (c *compilation) sourceMap() *compiler.SourceMap {
	sm := &compiler.SourceMap{
		Version:  3,
		Sources:  slices.Clone(c.sources),
		Mappings: strings.TrimSuffix(strings.Repeat("AAAA;", len(c.out)), ";"),
	}
	if c.req.SourceMapIncludeSources {
		sm.SourcesContent = slices.Clone(c.contents)
	}
	return sm
}
