package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/portmatch/internal/ir"
)

//go:embed schema.cue
var schemaSource string

//go:embed vocabulary.cue
var defaultSource []byte

// CompileError is a CUE-level failure with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var defaultVocabulary = sync.OnceValues(func() (*Vocabulary, error) {
	return Parse("vocabulary.cue", defaultSource)
})

// Default returns the embedded practice-app vocabulary.
// Panics if the embedded table does not validate; tests guard against that.
func Default() *Vocabulary {
	v, err := defaultVocabulary()
	if err != nil {
		panic(fmt.Sprintf("vocab: embedded vocabulary is invalid: %v", err))
	}
	return v
}

// DefaultSource returns the embedded CUE source.
func DefaultSource() []byte {
	return append([]byte(nil), defaultSource...)
}

// Load reads, compiles and validates a vocabulary file.
func Load(path string) (*Vocabulary, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles src and runs Validate, returning every validation error
// as a ValidationErrors value.
func Parse(filename string, src []byte) (*Vocabulary, error) {
	v, err := Compile(filename, src)
	if err != nil {
		return nil, err
	}
	if errs := Validate(v); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return v, nil
}

// Compile unifies src with the #Vocabulary schema and builds the lookup
// tables. It checks structure only; call Validate for cross references.
func Compile(filename string, src []byte) (*Vocabulary, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Vocabulary")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	voc := &Vocabulary{
		Modes:        make(map[ir.Mode]ModeEntry),
		Capabilities: make(map[ir.CapabilityID]Entry),
		Intents:      make(map[ir.IntentID]IntentEntry),
		Elements:     make(map[ir.ElementID]Entry),
	}

	version, err := unified.LookupPath(cue.ParsePath("version")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	voc.Version = version

	err = eachField(unified, "modes", func(label string, v cue.Value) error {
		entry := ModeEntry{
			Description: optionalString(v, "description"),
			Legal:       ir.NewSet[ir.CapabilityID](),
			Line:        v.Pos().Line(),
		}
		iter, err := v.LookupPath(cue.ParsePath("legal")).List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			c, err := iter.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			entry.Legal.Add(ir.CapabilityID(c))
		}
		voc.Modes[ir.Mode(label)] = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(unified, "capabilities", func(label string, v cue.Value) error {
		voc.Capabilities[ir.CapabilityID(label)] = Entry{
			Description: optionalString(v, "description"),
			Line:        v.Pos().Line(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(unified, "intents", func(label string, v cue.Value) error {
		port, err := v.LookupPath(cue.ParsePath("port")).String()
		if err != nil {
			return formatCUEError(err)
		}
		voc.Intents[ir.IntentID(label)] = IntentEntry{
			Description: optionalString(v, "description"),
			Port:        ir.CapabilityID(port),
			Line:        v.Pos().Line(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachField(unified, "elements", func(label string, v cue.Value) error {
		voc.Elements[ir.ElementID(label)] = Entry{
			Description: optionalString(v, "description"),
			Line:        v.Pos().Line(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return voc, nil
}

func eachField(v cue.Value, section string, fn func(label string, v cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return &CompileError{Field: section, Message: section + " is required", Pos: v.Pos()}
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(v cue.Value, field string) string {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return ""
	}
	s, err := fv.String()
	if err != nil {
		return ""
	}
	return s
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
