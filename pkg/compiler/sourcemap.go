package compiler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// SourceMap is a version 3 source map.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// ParseSourceMap decodes a JSON source map. Empty input yields nil.
func ParseSourceMap(bs []byte) (*SourceMap, error) {
	if len(bs) == 0 {
		return nil, nil
	}
	var sm SourceMap
	if err := json.Unmarshal(bs, &sm); err != nil {
		return nil, fmt.Errorf("failed to decode source map: %w", err)
	}
	return &sm, nil
}

// MarshalJSON keeps the required arrays present when empty.
func (sm SourceMap) MarshalJSON() ([]byte, error) {
	type rawSourceMap SourceMap // avoid recursive calls to MarshalJSON
	raw := rawSourceMap(sm)
	if raw.Sources == nil {
		raw.Sources = []string{}
	}
	if raw.Names == nil {
		raw.Names = []string{}
	}
	return json.Marshal(raw)
}

// RewriteSources makes file: sources relative to the build tree: the
// source root is stripped and the display path of the entry file is put in
// front. Sources without the file: scheme are left alone, so rewriting is
// idempotent.
func (sm *SourceMap) RewriteSources(sourceRoot, displayPath string) {
	if sm == nil {
		return
	}
	root := strings.TrimSuffix(filepath.ToSlash(sourceRoot), "/")

	for i, src := range sm.Sources {
		u, err := url.Parse(src)
		if err != nil || u.Scheme != "file" {
			continue
		}

		p := u.Path
		switch {
		case root == "":
		case p == root:
			p = ""
		case strings.HasPrefix(p, root+"/"):
			p = p[len(root)+1:]
		}
		sm.Sources[i] = path.Clean(displayPath + "/" + strings.TrimPrefix(p, "/"))
	}
}

// SourceMapSize estimates the memory held by a source map.
func SourceMapSize(sm *SourceMap) int {
	if sm == nil {
		return 0
	}
	n := len(sm.Mappings)
	for _, c := range sm.SourcesContent {
		n += len(c)
	}
	return n
}
