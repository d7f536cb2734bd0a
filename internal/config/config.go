package config

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/gobwas/glob"
	"github.com/goccy/go-yaml"

	"github.com/illusionfield/scssc/internal/logging"
	"github.com/illusionfield/scssc/pkg/compiler"
)

const (
	// FileName is the configuration file looked up in the build root.
	FileName = ".scss.config.json"

	// LegacyFileName is read when FileName does not exist.
	LegacyFileName = "scss-config.json"

	// DebugEnv turns on debug mode unless empty, "false" or "0".
	DebugEnv = "DEBUG_PACKAGE_SASS"

	DefaultOutDir   = ".scssc/out"
	DefaultInterval = 30 * time.Second

	logPrefix = "[ SASS Compiler ]"
)

// Config is the build configuration read from the build root. The zero value
// is the default configuration; use the accessor methods for defaulted
// values. Unknown keys are ignored.
type Config struct {
	IncludePaths        []string                  `json:"includePaths,omitempty"`
	QuietDeps           *bool                     `json:"quietDeps,omitempty"`
	Verbose             bool                      `json:"verbose,omitempty"`
	SilenceDeprecations []string                  `json:"silenceDeprecations,omitempty"`
	Packages            map[string]string         `json:"packages,omitempty"`
	Exclude             []string                  `json:"exclude,omitempty"`
	FileOptions         map[string]map[string]any `json:"fileOptions,omitempty"`
	OutDir              string                    `json:"outDir,omitempty"`
	CacheSize           int                       `json:"cacheSize,omitempty" minimum:"0"`
	CacheFile           string                    `json:"cacheFile,omitempty"`
	Concurrency         int                       `json:"concurrency,omitempty" minimum:"0"`
	Transport           string                    `json:"transport,omitempty" enum:"path,buffer"`
	SassBinary          string                    `json:"sassBinary,omitempty"`
	Interval            Duration                  `json:"interval,omitzero"`

	root        string
	source      string
	fileOptions []fileOption
}

type fileOption struct {
	pattern string
	glob    glob.Glob
	options map[string]any
}

// Root is the build root the configuration applies to.
func (c *Config) Root() string {
	return c.root
}

// Source is the file the configuration was read from, empty for defaults.
func (c *Config) Source() string {
	return c.source
}

func (c *Config) QuietDepsOrDefault() bool {
	if c.QuietDeps == nil {
		return true
	}
	return *c.QuietDeps
}

func (c *Config) CacheSizeOrDefault() int {
	return cmp.Or(c.CacheSize, compiler.DefaultCacheSize)
}

func (c *Config) ConcurrencyOrDefault() int {
	return cmp.Or(c.Concurrency, runtime.GOMAXPROCS(0))
}

func (c *Config) IntervalOrDefault() time.Duration {
	return cmp.Or(time.Duration(c.Interval), DefaultInterval)
}

func (c *Config) TransportOrDefault() compiler.Transport {
	t, err := compiler.ParseTransport(c.Transport)
	if err != nil {
		return compiler.TransportPath
	}
	return t
}

// OptionsFor returns the merged file options of every fileOptions pattern
// matching the display path ("packages/<name>/..." for package files) or the
// path in package of a file. Later patterns, in sorted order, win.
func (c *Config) OptionsFor(displayPath, pathInPackage string) map[string]any {
	var opts map[string]any
	for _, fo := range c.fileOptions {
		if !fo.glob.Match(displayPath) && !fo.glob.Match(pathInPackage) {
			continue
		}
		if opts == nil {
			opts = map[string]any{}
		}
		maps.Copy(opts, fo.options)
	}
	return opts
}

// Load reads the configuration of the build rooted at dir. The first of
// FileName and LegacyFileName that exists is used. A malformed file is
// reported once and the defaults apply; the legacy file is not consulted
// in that case. Load never fails.
func Load(dir string, log *logging.Logger) *Config {
	for _, name := range []string{FileName, LegacyFileName} {
		filename := filepath.Join(dir, name)
		c, err := ParseFile(filename)
		switch {
		case err == nil:
			c.source = filename
			c.resolve(dir)
			return c
		case errors.Is(err, fs.ErrNotExist):
			continue
		default:
			log.Warnf("%s ignoring malformed configuration %s: %v", logPrefix, filename, err)
		}
		break
	}

	c := &Config{}
	c.resolve(dir)
	return c
}

func ParseFile(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	return Parse(bs)
}

// Parse validates and decodes a configuration document. JSON is accepted, as
// is any YAML document of the same shape.
func Parse(bs []byte) (*Config, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Validate(data []byte) error {
	var config any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}
	if config == nil {
		return nil // empty document
	}

	return rootSchema.Validate(config)
}

func (c *Config) compile() error {
	for _, pattern := range c.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("failed to compile excluded file pattern %q: %w", pattern, err)
		}
	}

	c.fileOptions = c.fileOptions[:0]
	for _, pattern := range slices.Sorted(maps.Keys(c.FileOptions)) {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("failed to compile file options pattern %q: %w", pattern, err)
		}
		c.fileOptions = append(c.fileOptions, fileOption{pattern: pattern, glob: g, options: c.FileOptions[pattern]})
	}
	return nil
}

// resolve makes every path of the configuration absolute, relative to the
// build root.
func (c *Config) resolve(root string) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c.root = root

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}

	for i, p := range c.IncludePaths {
		c.IncludePaths[i] = abs(p)
	}
	for name, p := range c.Packages {
		c.Packages[name] = abs(p)
	}
	c.OutDir = abs(cmp.Or(c.OutDir, DefaultOutDir))
	c.CacheFile = abs(c.CacheFile)
}

// Override applies settings on top of the configuration, e.g. from command
// line flags. Nested objects are merged key by key, other values replace
// the configured ones. The result is validated like a configuration file.
func (c *Config) Override(overrides map[string]any) (*Config, error) {
	bs, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var base map[string]any
	if err := yaml.Unmarshal(bs, &base); err != nil {
		return nil, err
	}

	merged, err := merge([]map[string]any{base, overrides}, "", false)
	if err != nil {
		return nil, err
	}
	bs, err = yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged configuration: %w", err)
	}

	o, err := Parse(bs)
	if err != nil {
		return nil, err
	}
	o.source = c.source
	o.resolve(c.root)
	return o, nil
}

// DebugMode reports whether DebugEnv asks for debug output.
func DebugMode() bool {
	switch os.Getenv(DebugEnv) {
	case "", "false", "0":
		return false
	}
	return true
}

// Duration marshals as a string like "5m" or "0.5s" instead of an int64.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	val, err := time.ParseDuration(s)
	*d = Duration(val)
	return err
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
