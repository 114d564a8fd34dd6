package vocab

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/roach88/portmatch/internal/ir"
)

// Entry is a vocabulary entry with no behavior beyond its description.
type Entry struct {
	Description string
	Line        int
}

// ModeEntry lists the capabilities an application may report in a mode.
type ModeEntry struct {
	Description string
	Legal       ir.Set[ir.CapabilityID]
	Line        int
}

// IntentEntry associates an intent with the capability that satisfies it.
type IntentEntry struct {
	Description string
	Port        ir.CapabilityID
	Line        int
}

// Vocabulary is a compiled, read-only vocabulary table.
// Safe for concurrent reads once built.
type Vocabulary struct {
	Version      string
	Modes        map[ir.Mode]ModeEntry
	Capabilities map[ir.CapabilityID]Entry
	Intents      map[ir.IntentID]IntentEntry
	Elements     map[ir.ElementID]Entry
}

// SemVer parses Version. Validate reports V105 when this fails.
func (v *Vocabulary) SemVer() (*semver.Version, error) {
	sv, err := semver.StrictNewVersion(v.Version)
	if err != nil {
		return nil, fmt.Errorf("vocabulary version %q: %w", v.Version, err)
	}
	return sv, nil
}

// Satisfies reports whether the vocabulary version meets a semver
// constraint such as "^1.0" or ">= 1.2, < 2". An empty constraint always
// matches.
func (v *Vocabulary) Satisfies(constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("vocabulary constraint %q: %w", constraint, err)
	}
	sv, err := v.SemVer()
	if err != nil {
		return false, err
	}
	return c.Check(sv), nil
}

// Port returns the capability paired with intent.
func (v *Vocabulary) Port(intent ir.IntentID) (ir.CapabilityID, bool) {
	e, ok := v.Intents[intent]
	if !ok {
		return "", false
	}
	return e.Port, true
}

// IsLegal reports whether capability may be offered in mode.
// Unknown modes allow nothing.
func (v *Vocabulary) IsLegal(mode ir.Mode, capability ir.CapabilityID) bool {
	m, ok := v.Modes[mode]
	return ok && m.Legal.Has(capability)
}

func (v *Vocabulary) HasMode(m ir.Mode) bool {
	_, ok := v.Modes[m]
	return ok
}

func (v *Vocabulary) HasCapability(c ir.CapabilityID) bool {
	_, ok := v.Capabilities[c]
	return ok
}

func (v *Vocabulary) HasIntent(i ir.IntentID) bool {
	_, ok := v.Intents[i]
	return ok
}

func (v *Vocabulary) HasElement(e ir.ElementID) bool {
	_, ok := v.Elements[e]
	return ok
}

// Legal returns the capabilities legal in mode, sorted.
func (v *Vocabulary) Legal(mode ir.Mode) []ir.CapabilityID {
	return v.Modes[mode].Legal.Sorted()
}

// Ports returns every intent↔capability association, ordered by intent.
func (v *Vocabulary) Ports() []ir.PortPair {
	out := make([]ir.PortPair, 0, len(v.Intents))
	for id, e := range v.Intents {
		out = append(out, ir.PortPair{Intent: id, Capability: e.Port})
	}
	slices.SortFunc(out, ir.ComparePortPairs)
	return out
}

// IntentsFor returns the intents a capability can satisfy, sorted.
func (v *Vocabulary) IntentsFor(capability ir.CapabilityID) []ir.IntentID {
	var out []ir.IntentID
	for id, e := range v.Intents {
		if e.Port == capability {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (v *Vocabulary) ModeIDs() []ir.Mode { return sortedKeys(v.Modes) }
func (v *Vocabulary) CapabilityIDs() []ir.CapabilityID { return sortedKeys(v.Capabilities) }
func (v *Vocabulary) IntentIDs() []ir.IntentID { return sortedKeys(v.Intents) }
func (v *Vocabulary) ElementIDs() []ir.ElementID { return sortedKeys(v.Elements) }

func sortedKeys[K ~string, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
