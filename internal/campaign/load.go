package campaign

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// schema closes the campaign struct so unknown fields fail unification.
const schema = `
#Campaign: {
	name?:             string
	description?:      string
	target?:           string
	seed?:             int & >=0
	runs?:             int & >=0
	depth?:            int & >=0
	max_rejects?:      int & >=0
	fail_on_revert?:   bool
	shrink_run_limit?: int & >=0
	workers?:          int & >=1
	collect_all?:      bool
	actors?:           int & >=1
	dictionary_rate?:  number & >=0 & <=1
	timeout?:          string
	dictionary?: [...int]
	actions?: [...string]
}

campaign: #Campaign
`

// Load reads a campaign file, choosing the syntax by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported campaign file extension %q (want .yaml, .yml or .cue)", ext)
	}
}

// ParseYAML decodes a YAML campaign. Unknown fields are rejected.
func ParseYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse YAML campaign: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign: %w", err)
	}
	return &f, nil
}

// ParseCUE evaluates a CUE campaign. The file must define a top-level
// campaign struct; filename is used in error positions.
func ParseCUE(filename string, data []byte) (*File, error) {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema, cue.Filename("campaign-schema.cue"))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("compile campaign schema: %w", err)
	}

	fileVal := ctx.CompileBytes(data, cue.Filename(filename))
	if err := fileVal.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE campaign: %w", err)
	}
	if !fileVal.LookupPath(cue.ParsePath("campaign")).Exists() {
		return nil, fmt.Errorf("%s: campaign struct not found", filename)
	}

	v := schemaVal.Unify(fileVal)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid CUE campaign: %w", err)
	}

	var f File
	if err := v.LookupPath(cue.ParsePath("campaign")).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode CUE campaign: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign: %w", err)
	}
	return &f, nil
}
