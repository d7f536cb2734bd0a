package compiler

import (
	"context"
	"errors"
)

// ErrNoEngine is returned when a Compiler has no engine to compile with.
var ErrNoEngine = errors.New("no sass engine configured")

// Syntax is the input syntax of a style sheet.
type Syntax int

const (
	SyntaxSCSS Syntax = iota
	SyntaxIndented
	SyntaxCSS
)

func (s Syntax) String() string {
	switch s {
	case SyntaxIndented:
		return "indented"
	case SyntaxCSS:
		return "css"
	default:
		return "scss"
	}
}

// SyntaxForExtension picks the syntax for a file extension, with or without
// the leading dot.
func SyntaxForExtension(ext string) Syntax {
	switch ext {
	case "sass", ".sass":
		return SyntaxIndented
	case "css", ".css":
		return SyntaxCSS
	default:
		return SyntaxSCSS
	}
}

// Importer is the import hook handed to an engine. It returns the file: URL
// of the file an import refers to, or false if it knows none.
type Importer interface {
	FindFileURL(url, containingURL string) (string, bool)
}

// Tracker is implemented by importers that know which files belong to the
// batch. Engines use it to tell project files from dependencies.
type Tracker interface {
	Tracked(fileURL string) bool
}

// Request is one compilation handed to an Engine.
type Request struct {
	// URL is the file: URL of the entry point.
	URL string

	// Source, if set, is compiled instead of the contents found at URL.
	Source string

	Syntax                  Syntax
	Importer                Importer
	Style                   string
	SourceMap               bool
	SourceMapIncludeSources bool
	QuietDeps               bool
	Verbose                 bool
	SilenceDeprecations     []string
}

// Response is the engine's answer to a Request.
type Response struct {
	CSS        string
	SourceMap  []byte // JSON, empty if none
	LoadedURLs []string
}

// Engine compiles Sass to CSS. Implementations must be safe for concurrent
// use.
type Engine interface {
	Compile(ctx context.Context, req Request) (*Response, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, req Request) (*Response, error)

func (f EngineFunc) Compile(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
