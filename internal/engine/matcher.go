package engine

import (
	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/vocab"
)

// Evaluation is a match result plus the vocabulary gaps found while
// computing it. Gaps are recovered, never fatal.
type Evaluation struct {
	Result ir.MatchResult
	Gaps   []*ir.Error
}

// Matcher computes MatchResults against one vocabulary.
// Safe for concurrent use; it holds no mutable state.
type Matcher struct {
	vocab *vocab.Vocabulary
}

// NewMatcher creates a matcher over v.
func NewMatcher(v *vocab.Vocabulary) *Matcher {
	return &Matcher{vocab: v}
}

// Vocabulary returns the vocabulary the matcher resolves ports against.
func (m *Matcher) Vocabulary() *vocab.Vocabulary {
	return m.vocab
}

// Match resolves every intent through its port.
//
//   - intent with a port whose capability is offered → satisfied pair
//   - intent with no port, or an absent capability → unsatisfied
//   - offered capability referenced by no satisfied pair → unused
//
// Match is pure and ignores mode legality; use Evaluate to validate the
// application state as well. Iteration follows sorted identifiers so the
// result never depends on map order.
func (m *Matcher) Match(app ir.ApplicationState, user ir.UserState) ir.MatchResult {
	result := ir.MatchResult{
		Satisfied:          []ir.PortPair{},
		UnsatisfiedIntents: []ir.IntentID{},
		UnusedCapabilities: []ir.CapabilityID{},
	}

	used := ir.NewSet[ir.CapabilityID]()
	for _, intent := range user.Intents.Sorted() {
		capability, ok := m.vocab.Port(intent)
		if !ok || !app.Capabilities.Has(capability) {
			result.UnsatisfiedIntents = append(result.UnsatisfiedIntents, intent)
			continue
		}
		result.Satisfied = append(result.Satisfied, ir.PortPair{Intent: intent, Capability: capability})
		used.Add(capability)
	}

	for _, capability := range app.Capabilities.Sorted() {
		if !used.Has(capability) {
			result.UnusedCapabilities = append(result.UnusedCapabilities, capability)
		}
	}

	result.Canonicalize()
	return result
}

// Evaluate validates the state pair against the vocabulary and matches it.
//
// An unknown mode, or a known capability that is illegal for the mode, is a
// modeling inconsistency and returned as the error. Unknown intents,
// capabilities and elements are vocabulary gaps: they are reported in
// Evaluation.Gaps and matching proceeds (unknown intents are unsatisfied,
// unknown capabilities unused).
func (m *Matcher) Evaluate(app ir.ApplicationState, user ir.UserState) (Evaluation, error) {
	return m.evaluate(0, app, user)
}

func (m *Matcher) evaluate(seq int64, app ir.ApplicationState, user ir.UserState) (Evaluation, error) {
	if !m.vocab.HasMode(app.Mode) {
		return Evaluation{}, ir.NewUnknownMode(seq, app.Mode)
	}

	var gaps []*ir.Error
	for _, capability := range app.Capabilities.Sorted() {
		if !m.vocab.HasCapability(capability) {
			gaps = append(gaps, ir.NewVocabularyGap(seq, "capability", string(capability)))
			continue
		}
		if !m.vocab.IsLegal(app.Mode, capability) {
			return Evaluation{}, ir.NewModelingInconsistency(seq, app.Mode, capability)
		}
	}
	for _, element := range app.VisibleElements.Sorted() {
		if !m.vocab.HasElement(element) {
			gaps = append(gaps, ir.NewVocabularyGap(seq, "element", string(element)))
		}
	}
	for _, intent := range user.Intents.Sorted() {
		if !m.vocab.HasIntent(intent) {
			gaps = append(gaps, ir.NewVocabularyGap(seq, "intent", string(intent)))
		}
	}

	return Evaluation{Result: m.Match(app, user), Gaps: gaps}, nil
}
