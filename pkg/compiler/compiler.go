package compiler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	ocp_fs "github.com/illusionfield/scssc/internal/fs"
	"github.com/illusionfield/scssc/internal/logging"
)

const logPrefix = "[ SASS Compiler ]"

// Transport selects how the entry point reaches the engine.
type Transport int

const (
	// TransportPath lets the engine read the root from its file: URL.
	TransportPath Transport = iota
	// TransportBuffer hands the host-supplied contents to the engine, with
	// the root's URL as the entry point for relative imports.
	TransportBuffer
)

// TransportIds maps transports to their configuration names.
var TransportIds = map[Transport][]string{
	TransportPath:   {"path"},
	TransportBuffer: {"buffer"},
}

// ParseTransport returns the transport for a configuration name.
func ParseTransport(s string) (Transport, error) {
	for t, ids := range TransportIds {
		for _, id := range ids {
			if id == s {
				return t, nil
			}
		}
	}
	return TransportPath, fmt.Errorf("unknown transport %q", s)
}

// Compiler compiles root style sheets, one engine call per root. Configure
// it with the With* methods before use; after that it is read-only and
// CompileOneFile may be called concurrently.
type Compiler struct {
	engine       Engine
	includePaths []string
	quietDeps    bool
	verbose      bool
	silence      []string
	transport    Transport
	stat         ocp_fs.StatFunc
	log          *logging.Logger
	debug        bool
}

func New(engine Engine) *Compiler {
	return &Compiler{
		engine:    engine,
		quietDeps: true,
		log:       logging.Nop(),
	}
}

// WithIncludePaths sets the extra directories searched when an import
// cannot be found otherwise, in order.
func (c *Compiler) WithIncludePaths(paths []string) *Compiler {
	c.includePaths = paths
	return c
}

func (c *Compiler) WithQuietDeps(quiet bool) *Compiler {
	c.quietDeps = quiet
	return c
}

func (c *Compiler) WithVerbose(verbose bool) *Compiler {
	c.verbose = verbose
	return c
}

func (c *Compiler) WithSilenceDeprecations(ids []string) *Compiler {
	c.silence = ids
	return c
}

func (c *Compiler) WithTransport(t Transport) *Compiler {
	c.transport = t
	return c
}

// WithStat replaces the file existence probe used during import resolution.
func (c *Compiler) WithStat(stat ocp_fs.StatFunc) *Compiler {
	c.stat = stat
	return c
}

func (c *Compiler) WithLogger(log *logging.Logger) *Compiler {
	c.log = log
	return c
}

// WithDebug makes compile failures log full stack traces.
func (c *Compiler) WithDebug(debug bool) *Compiler {
	c.debug = debug
	return c
}

// CompileOneFile compiles root f against batch. On failure the returned
// error is a *CompileError naming f; the output is nil and the caller skips
// the artifact.
func (c *Compiler) CompileOneFile(ctx context.Context, f *File, batch Batch) (*Output, error) {
	if c.engine == nil {
		return nil, ErrNoEngine
	}

	resolver := NewResolver(f, batch, c.includePaths, c.stat)

	resp, err := c.invoke(ctx, c.request(f, resolver))
	if err != nil {
		return nil, c.fail(f, err)
	}

	sm, err := ParseSourceMap(resp.SourceMap)
	if err != nil {
		c.log.Warnf("%s source map of %s dropped: %v", logPrefix, f.displayPath(), err)
	}
	sm.RewriteSources(f.SourceRoot, f.displayPath())

	refs, untracked := referencedFiles(f, resp.LoadedURLs, resolver.byPath)
	if len(untracked) > 0 {
		c.log.Warnf("%s", untrackedMessage(untracked))
	}

	return &Output{
		Result: CompileResult{
			CSS:       resp.CSS,
			SourceMap: sm,
		},
		ReferencedImportPaths: refs,
		LoadedURLs:            resp.LoadedURLs,
		Untracked:             untracked,
	}, nil
}

func (c *Compiler) request(f *File, importer Importer) Request {
	req := Request{
		URL:                     PathToFileURL(f.RealPath()),
		Syntax:                  SyntaxForExtension(f.ext()),
		Importer:                importer,
		Style:                   "expanded",
		SourceMap:               true,
		SourceMapIncludeSources: true,
		QuietDeps:               c.quietDeps,
		Verbose:                 c.verbose,
		SilenceDeprecations:     c.silence,
	}
	if c.transport == TransportBuffer {
		req.Source = string(f.Contents)
	}
	return req
}

// invoke calls the engine exactly once; a panicking engine is reported like
// a failing one.
func (c *Compiler) invoke(ctx context.Context, req Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("engine panic: %v", r)
		}
	}()

	resp, err = c.engine.Compile(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("engine returned no result")
	}
	return resp, err
}

func (c *Compiler) fail(f *File, err error) *CompileError {
	if c.debug {
		c.log.Errorf("%s %s: %+v", logPrefix, f.displayPath(), errors.WithStack(err))
	}
	return &CompileError{
		Message:    fmt.Sprintf("Scss compiler %v", err),
		SourcePath: f.displayPath(),
		Err:        err,
	}
}
