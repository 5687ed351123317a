// Package cmdspec validates command parameters against the embedded CUE
// schema before anything executes or replays. The schema is the contract
// for the on-disk log: rows that fail it are refused on append and
// flagged on replay.
package cmdspec

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/jve-editor/core/internal/canon"
)

//go:embed commands.cue
var schemaSrc string

// ValidationError reports a single schema violation.
type ValidationError struct {
	Command string `json:"command"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Command, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// UnknownCommandError marks a command type the schema does not define.
type UnknownCommandError struct {
	Type string
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command type %q", e.Type)
}

var (
	cctx = cuecontext.New()

	loadOnce  sync.Once
	schemaVal cue.Value
	schemaErr error
)

func loadSchema() (cue.Value, error) {
	loadOnce.Do(func() {
		v := cctx.CompileString(schemaSrc, cue.Filename("commands.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile command schema: %w", err)
			return
		}
		schemaVal = v
	})
	return schemaVal, schemaErr
}

func commandSchema(root cue.Value, cmdType string) cue.Value {
	return root.LookupPath(cue.MakePath(cue.Def("#Commands"), cue.Str(cmdType)))
}

// KnownType reports whether the schema defines the command type.
func KnownType(cmdType string) bool {
	root, err := loadSchema()
	if err != nil {
		return false
	}
	return commandSchema(root, cmdType).Exists()
}

// Validate checks command parameters against the schema for their type.
// Returns UnknownCommandError for types the schema does not define, and
// joined ValidationErrors for shape violations.
func Validate(cmdType string, params canon.Object) error {
	root, err := loadSchema()
	if err != nil {
		return err
	}
	sch := commandSchema(root, cmdType)
	if !sch.Exists() {
		return UnknownCommandError{Type: cmdType}
	}

	if params == nil {
		params = canon.Object{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	val := cctx.CompileBytes(data, cue.Filename(cmdType+".params"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("parse params: %w", err)
	}

	unified := sch.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return validationErrors(cmdType, err)
	}
	return nil
}

func validationErrors(cmdType string, err error) error {
	var out []error
	for _, e := range cueerrors.Errors(err) {
		out = append(out, ValidationError{
			Command: cmdType,
			Field:   strings.Join(e.Path(), "."),
			Message: e.Error(),
		})
	}
	if len(out) == 0 {
		return ValidationError{Command: cmdType, Message: err.Error()}
	}
	return errors.Join(out...)
}
