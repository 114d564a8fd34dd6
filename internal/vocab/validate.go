package vocab

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Validation error codes (V100-V199)
const (
	ErrUnknownLegalCapability = "V101" // legal list names an undeclared capability
	ErrUnknownPortCapability  = "V102" // intent ports to an undeclared capability
	ErrUnreachablePort        = "V103" // port target is legal in no mode
	ErrMalformedIdentifier    = "V104" // identifier is not UPPER_SNAKE_CASE
	ErrInvalidVersion         = "V105" // version is not strict semver
	ErrNoModes                = "V106" // at least one mode is required
	ErrDuplicateIdentifier    = "V107" // identifier declared under two kinds
)

var identifierPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidationError represents a semantic vocabulary error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by Parse and Load when Validate fails.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("vocabulary has %d error(s): %s", len(es), strings.Join(msgs, "; "))
}

// Validate checks cross references of a compiled vocabulary.
// Returns all errors found (does not fail-fast), in a stable order.
func Validate(v *Vocabulary) []ValidationError {
	var errs []ValidationError

	// V105: version
	if _, err := semver.StrictNewVersion(v.Version); err != nil {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("%q is not a semantic version: %v", v.Version, err),
			Code:    ErrInvalidVersion,
		})
	}

	// V106: modes
	if len(v.Modes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "modes",
			Message: "at least one mode is required",
			Code:    ErrNoModes,
		})
	}

	// V104 and V107: identifier shape and uniqueness across kinds
	seen := make(map[string]string)
	check := func(kind, id string, line int) {
		field := kind + "." + id
		if !identifierPattern.MatchString(id) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("identifier %q must match %s", id, identifierPattern),
				Code:    ErrMalformedIdentifier,
				Line:    line,
			})
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("identifier %q already declared in %s", id, prev),
				Code:    ErrDuplicateIdentifier,
				Line:    line,
			})
			return
		}
		seen[id] = kind
	}
	for _, id := range v.ModeIDs() {
		check("modes", string(id), v.Modes[id].Line)
	}
	for _, id := range v.CapabilityIDs() {
		check("capabilities", string(id), v.Capabilities[id].Line)
	}
	for _, id := range v.IntentIDs() {
		check("intents", string(id), v.Intents[id].Line)
	}
	for _, id := range v.ElementIDs() {
		check("elements", string(id), v.Elements[id].Line)
	}

	// V101: legal lists reference declared capabilities
	for _, mode := range v.ModeIDs() {
		entry := v.Modes[mode]
		for _, c := range entry.Legal.Sorted() {
			if !v.HasCapability(c) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("modes.%s.legal", mode),
					Message: fmt.Sprintf("capability %q is not declared", c),
					Code:    ErrUnknownLegalCapability,
					Line:    entry.Line,
				})
			}
		}
	}

	// V102 and V103: ports reference declared, reachable capabilities
	for _, intent := range v.IntentIDs() {
		entry := v.Intents[intent]
		field := fmt.Sprintf("intents.%s.port", intent)
		if !v.HasCapability(entry.Port) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("capability %q is not declared", entry.Port),
				Code:    ErrUnknownPortCapability,
				Line:    entry.Line,
			})
			continue
		}
		if !legalSomewhere(v, entry) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("capability %q is legal in no mode, so %s can never be satisfied", entry.Port, intent),
				Code:    ErrUnreachablePort,
				Line:    entry.Line,
			})
		}
	}

	return errs
}

func legalSomewhere(v *Vocabulary, entry IntentEntry) bool {
	for _, m := range v.Modes {
		if m.Legal.Has(entry.Port) {
			return true
		}
	}
	return false
}
