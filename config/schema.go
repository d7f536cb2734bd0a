//go:generate go run ../build/gen-config-schema.go schema.json

// Package config holds the JSON schema of the .scss.config.json file.
package config

import (
	_ "embed"
)

//go:embed "schema.json"
var schema []byte

// Schema returns the configuration file schema. Callers must not modify it.
func Schema() []byte {
	return schema
}
