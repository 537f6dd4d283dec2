package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var embeddedSchema []byte

// Schema returns the embedded CUE schema.
func Schema() []byte { return embeddedSchema }

func loadSchema(path string) ([]byte, error) {
	if path == "" {
		return embeddedSchema, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read CUE schema: %w", err)
	}
	return b, nil
}

// ValidateWithCue checks YAML data against the #Simulation definition of a
// CUE schema. filename is only used in error positions.
func ValidateWithCue(filename string, data, schema []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schema, cue.Filename("schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Simulation"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Simulation definition")
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse YAML config: %w", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot build YAML config: %w", err)
	}

	if err := def.Unify(configVal).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: schema validation failed: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}
