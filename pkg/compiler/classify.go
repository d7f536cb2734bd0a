package compiler

import (
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// FileOptions are the per-file build options the compiler understands.
type FileOptions struct {
	IsImport *bool `mapstructure:"isImport"`
}

// DecodeOptions extracts the options known to the compiler. Values that
// cannot be decoded are treated as absent.
func DecodeOptions(raw map[string]any) FileOptions {
	var opts FileOptions
	if len(raw) == 0 {
		return opts
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return FileOptions{}
	}
	if err := dec.Decode(raw); err != nil {
		return FileOptions{}
	}
	return opts
}

// IsRoot reports whether f is compiled on its own. An explicit isImport
// option wins in either direction; otherwise files named _*.scss or _*.sass
// are partials.
func IsRoot(f *File) bool {
	if opts := DecodeOptions(f.Options); opts.IsImport != nil {
		return !*opts.IsImport
	}
	return !isPartial(f.PathInPackage)
}

func isPartial(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}
