// Package compiler is the core of a Sass/SCSS build plugin: it decides which
// style sheets are compiled on their own, resolves imports across the
// application and its packages, drives an external Sass engine and reports
// which files every output depends on.
//
// # Namespaces
//
// Files are addressed by namespace keys. Application files live under "{}"
// and package files under "{name}":
//
//	{}/client/main.scss
//	{ui}/styles/_mixins.scss
//
// Imports may use these keys directly, the "meteor:" / "meteor/" prefixes,
// an application-absolute "/path", a "~module" reference into node_modules or
// a path relative to the importing file.
//
// # Basic Usage
//
//	batch := compiler.NewBatch(files...)
//	c := compiler.New(engine).
//	    WithIncludePaths([]string{"/opt/styles"}).
//	    WithLogger(log)
//
//	for _, f := range files {
//	    if !compiler.IsRoot(f) {
//	        continue
//	    }
//	    out, err := c.CompileOneFile(ctx, f, batch)
//	    if err != nil {
//	        // *CompileError, other roots are unaffected
//	        continue
//	    }
//	    sheet := out.Stylesheet(f)
//	    // out.ReferencedImportPaths drives cache invalidation.
//	}
//
// A Compiler is immutable once configured and may compile many roots
// concurrently.
package compiler
