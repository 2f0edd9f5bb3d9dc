package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/wodkit/internal/program"
)

//go:embed schema.cue
var schemaCUE string

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeReadFailed   = "E002" // File read error
	ErrCodeParseFailed  = "E003" // CUE parse/build failed
	ErrCodeSchemaFailed = "E004" // Schema violation
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeDecodeFailed = "E006" // Program decode failed
)

// LoadError represents an error that occurred during definition loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains a loaded program definition.
type LoadResult struct {
	Program *program.Program
	Name    string
}

// LoadProgram loads one CUE definition file, checks it against the embedded
// schema, and builds the indexed program.
//
// The file must be a single #Program value. Schema violations surface with
// CUE source positions; structural problems (duplicate ids, dangling child
// references) surface from the program builder.
func LoadProgram(path string) (*LoadResult, *LoadError) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("internal schema error: %v", err)}
	}
	programSchema := schema.LookupPath(cue.ParsePath("#Program"))
	if err := programSchema.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("internal schema error: %v", err)}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}

	unified := programSchema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, cueLoadError(ErrCodeSchemaFailed, err)
	}

	doc, err := unified.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: fmt.Sprintf("encoding definition: %v", err)}
	}

	prog, err := program.Decode(doc)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}
	}

	name := ""
	if nameVal := unified.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, _ = nameVal.String()
	}

	return &LoadResult{Program: prog, Name: name}, nil
}

// cueLoadError converts a CUE error to a LoadError carrying the first
// reported source position.
func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: cueerrors.Details(err, nil)}
	if positions := cueerrors.Positions(cueerrors.Promote(err, "")); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
