// Package dartsass runs compiles through the Dart Sass embedded protocol.
package dartsass

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"

	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/pkg/compiler"
)

const DefaultBinary = "sass"

// NoTimeout is used when Options.Timeout is zero: compiles run until the
// engine answers or the process dies.
const NoTimeout = time.Duration(math.MaxInt64)

// eventLocation matches the "url:line:col: " prefix of engine log messages.
var eventLocation = regexp.MustCompile(`^(.+?):\d+:\d+: `)

type Options struct {
	// Binary is the Dart Sass executable, looked up on PATH if not absolute.
	Binary string
	// Timeout bounds a single compile. Zero means NoTimeout.
	Timeout time.Duration
	Logger  *logging.Logger
}

// Engine is a compiler.Engine backed by one long-lived Dart Sass process.
type Engine struct {
	transpiler *godartsass.Transpiler
	log        *logging.Logger

	mu     sync.Mutex
	seen   map[string]struct{} // deprecation messages already reported
	active map[*resolver]struct{}
}

// Start launches the Sass process. Close must be called to stop it.
func Start(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	e := &Engine{log: opts.Logger, seen: map[string]struct{}{}, active: map[*resolver]struct{}{}}

	topts := transpilerOptions(opts, e.logEvent)
	t, err := godartsass.Start(topts)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", topts.DartSassEmbeddedFilename, err)
	}
	e.transpiler = t
	return e, nil
}

func transpilerOptions(opts Options, handler func(godartsass.LogEvent)) godartsass.Options {
	topts := godartsass.Options{
		DartSassEmbeddedFilename: opts.Binary,
		Timeout:                  opts.Timeout,
		LogEventHandler:          handler,
	}
	if topts.DartSassEmbeddedFilename == "" {
		topts.DartSassEmbeddedFilename = DefaultBinary
	}
	if topts.Timeout <= 0 {
		topts.Timeout = NoTimeout
	}
	return topts
}

func (e *Engine) Close() error {
	return e.transpiler.Close()
}

func (e *Engine) Compile(ctx context.Context, req compiler.Request) (*compiler.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := req.Source
	if src == "" {
		p, ok := compiler.FileURLToPath(req.URL)
		if !ok {
			return nil, fmt.Errorf("entry point %s is not a file URL", req.URL)
		}
		bs, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		src = string(bs)
	}

	res := newResolver(req)
	e.track(res)
	defer e.untrack(res)

	args := godartsass.Args{
		Source:                  src,
		URL:                     req.URL,
		OutputStyle:             outputStyle(req.Style),
		SourceSyntax:            sourceSyntax(req.Syntax),
		EnableSourceMap:         req.SourceMap,
		SourceMapIncludeSources: req.SourceMapIncludeSources,
		SilenceDeprecations:     req.SilenceDeprecations,
	}
	if req.Importer != nil {
		args.ImportResolver = res
	}

	out, err := e.transpiler.Execute(args)
	if err != nil {
		return nil, err
	}

	return &compiler.Response{
		CSS:        out.CSS,
		SourceMap:  []byte(out.SourceMap),
		LoadedURLs: res.loadedURLs(),
	}, nil
}

func (e *Engine) track(r *resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[r] = struct{}{}
}

func (e *Engine) untrack(r *resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, r)
}

// owner returns the running compile that loaded the file a log event points
// at. Events of one transpiler carry no compile id.
func (e *Engine) owner(eventURL string) *resolver {
	e.mu.Lock()
	defer e.mu.Unlock()
	for r := range e.active {
		if _, ok := r.lookup(eventURL); ok {
			return r
		}
	}
	return nil
}

func (e *Engine) logEvent(ev godartsass.LogEvent) {
	switch ev.Type {
	case godartsass.LogEventTypeDebug:
		e.log.Debugf("%s", ev.Message)
	case godartsass.LogEventTypeDeprecated:
		verbose := false
		if m := eventLocation.FindStringSubmatch(ev.Message); m != nil {
			if r := e.owner(m[1]); r != nil {
				if r.quietDeps && r.dependency(m[1]) {
					e.log.Debugf("deprecation %s: %s", ev.DeprecationType, ev.Message)
					return
				}
				verbose = r.verbose
			}
		}
		if !verbose && !e.firstSeen(ev.Message) {
			return
		}
		e.log.Warnf("deprecation %s: %s", ev.DeprecationType, ev.Message)
	default:
		e.log.Warnf("%s", ev.Message)
	}
}

func (e *Engine) firstSeen(msg string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.seen[msg]; ok {
		return false
	}
	e.seen[msg] = struct{}{}
	return true
}

// resolver adapts a compiler.Importer to the embedded protocol and records
// every file the engine loads through it. It also carries the log settings
// of its compile.
type resolver struct {
	importer  compiler.Importer
	entry     string
	quietDeps bool
	verbose   bool

	mu     sync.Mutex
	loaded []string
}

func newResolver(req compiler.Request) *resolver {
	return &resolver{
		importer:  req.Importer,
		entry:     req.URL,
		quietDeps: req.QuietDeps,
		verbose:   req.Verbose,
		loaded:    []string{req.URL},
	}
}

// lookup finds the loaded URL an engine log event refers to. Event URLs
// arrive unescaped.
func (r *resolver) lookup(eventURL string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.loaded {
		if unescape(u) == eventURL {
			return u, true
		}
	}
	return "", false
}

// dependency reports whether eventURL is a file outside the project: neither
// the entry point nor a file of the batch.
func (r *resolver) dependency(eventURL string) bool {
	u, ok := r.lookup(eventURL)
	if !ok || u == r.entry {
		return false
	}
	if t, ok := r.importer.(compiler.Tracker); ok {
		return !t.Tracked(u)
	}
	return true
}

func unescape(u string) string {
	if s, err := url.QueryUnescape(u); err == nil {
		return s
	}
	return u
}

func (r *resolver) CanonicalizeURL(spec string) (string, error) {
	u, ok := r.importer.FindFileURL(spec, "")
	if !ok {
		return "", nil // let the engine report the missing import
	}
	return u, nil
}

func (r *resolver) Load(canonicalizedURL string) (godartsass.Import, error) {
	p, ok := compiler.FileURLToPath(canonicalizedURL)
	if !ok {
		return godartsass.Import{}, fmt.Errorf("cannot load %s", canonicalizedURL)
	}
	bs, err := os.ReadFile(p)
	if err != nil {
		return godartsass.Import{}, err
	}

	r.mu.Lock()
	r.loaded = append(r.loaded, canonicalizedURL)
	r.mu.Unlock()

	return godartsass.Import{
		Content:      string(bs),
		SourceSyntax: sourceSyntax(compiler.SyntaxForExtension(filepath.Ext(p))),
	}, nil
}

func (r *resolver) loadedURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.loaded...)
}

func outputStyle(s string) godartsass.OutputStyle {
	if s == "compressed" {
		return godartsass.OutputStyleCompressed
	}
	return godartsass.OutputStyleExpanded
}

func sourceSyntax(s compiler.Syntax) godartsass.SourceSyntax {
	switch s {
	case compiler.SyntaxIndented:
		return godartsass.SourceSyntaxSASS
	case compiler.SyntaxCSS:
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}
