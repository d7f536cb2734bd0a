package compiler

// DefaultCacheSize is the default byte budget for cached compile results.
const DefaultCacheSize = 1024 * 1024 * 10

// CacheKey identifies the content of a file for caching purposes.
func CacheKey(f *File) string {
	return f.Hash
}

// ResultSize is the size of a compile result, as charged against the cache
// budget.
func ResultSize(r *CompileResult) int {
	if r == nil {
		return 0
	}
	return len(r.CSS) + SourceMapSize(r.SourceMap)
}
