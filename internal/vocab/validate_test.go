package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/portmatch/internal/ir"
)

func validVocabulary() *Vocabulary {
	return &Vocabulary{
		Version: "1.0.0",
		Modes: map[ir.Mode]ModeEntry{
			"LIST": {Legal: ir.NewSet[ir.CapabilityID]("ACCEPT_NEXT")},
		},
		Capabilities: map[ir.CapabilityID]Entry{"ACCEPT_NEXT": {}},
		Intents:      map[ir.IntentID]IntentEntry{"WANT_NEXT": {Port: "ACCEPT_NEXT"}},
		Elements:     map[ir.ElementID]Entry{"NEXT_BUTTON": {}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *Vocabulary)
		codes  []string
	}{
		{
			name:   "valid",
			mutate: func(v *Vocabulary) {},
		},
		{
			name: "unknown legal capability",
			mutate: func(v *Vocabulary) {
				v.Modes["LIST"].Legal.Add("ACCEPT_GHOST")
			},
			codes: []string{ErrUnknownLegalCapability},
		},
		{
			name: "port to unknown capability",
			mutate: func(v *Vocabulary) {
				v.Intents["WANT_GHOST"] = IntentEntry{Port: "ACCEPT_GHOST"}
			},
			codes: []string{ErrUnknownPortCapability},
		},
		{
			name: "port legal nowhere",
			mutate: func(v *Vocabulary) {
				v.Capabilities["ACCEPT_PREV"] = Entry{}
				v.Intents["WANT_PREV"] = IntentEntry{Port: "ACCEPT_PREV"}
			},
			codes: []string{ErrUnreachablePort},
		},
		{
			name: "malformed identifier",
			mutate: func(v *Vocabulary) {
				v.Elements["nextButton"] = Entry{Line: 7}
			},
			codes: []string{ErrMalformedIdentifier},
		},
		{
			name:   "bad version",
			mutate: func(v *Vocabulary) { v.Version = "v1" },
			codes:  []string{ErrInvalidVersion},
		},
		{
			name: "no modes",
			mutate: func(v *Vocabulary) {
				v.Modes = map[ir.Mode]ModeEntry{}
			},
			// the only port becomes unreachable as well
			codes: []string{ErrNoModes, ErrUnreachablePort},
		},
		{
			name: "duplicate across kinds",
			mutate: func(v *Vocabulary) {
				v.Elements["ACCEPT_NEXT"] = Entry{}
			},
			codes: []string{ErrDuplicateIdentifier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVocabulary()
			tt.mutate(v)

			errs := Validate(v)
			var got []string
			for _, e := range errs {
				got = append(got, e.Code)
			}
			assert.Equal(t, tt.codes, got)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "elements.x", Message: "bad", Code: ErrMalformedIdentifier, Line: 7}
	assert.Equal(t, "[V104] line 7: elements.x: bad", e.Error())

	e.Line = 0
	assert.Equal(t, "[V104] elements.x: bad", e.Error())
}
