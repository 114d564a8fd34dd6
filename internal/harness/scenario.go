package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/portmatch/internal/ir"
)

// Scenario is a scripted oracle session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Vocabulary is a semver constraint the vocabulary must satisfy.
	Vocabulary string `yaml:"vocabulary,omitempty"`

	// SessionID is the exported session id. Defaults to Name.
	SessionID string `yaml:"session_id,omitempty"`

	// StartedAt is the first clock reading (RFC 3339). Each later reading
	// advances one second. Defaults to testutil.DefaultStart.
	StartedAt string `yaml:"started_at,omitempty"`

	Steps []Step `yaml:"steps"`

	// Close closes the session after the last step.
	Close bool `yaml:"close,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step records one transition and optionally validates it.
type Step struct {
	Trigger string    `yaml:"trigger"`
	App     AppSpec   `yaml:"app"`
	User    UserSpec  `yaml:"user"`
	Verdict string    `yaml:"verdict,omitempty"`
	Note    string    `yaml:"note,omitempty"`
	Expect  *Expected `yaml:"expect,omitempty"`
}

// AppSpec is the application state of a step.
type AppSpec struct {
	Mode         string   `yaml:"mode"`
	Elements     []string `yaml:"elements,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// UserSpec is the user state of a step.
type UserSpec struct {
	Intents         []string `yaml:"intents,omitempty"`
	ExpectedVisible []string `yaml:"expected_visible,omitempty"`
}

// Expected checks the recorded match. Omitted lists are not checked; an
// explicit [] requires the list to be empty. Satisfied pairs are written
// "INTENT<->CAPABILITY".
type Expected struct {
	Satisfied   []string `yaml:"satisfied,omitempty"`
	Unsatisfied []string `yaml:"unsatisfied,omitempty"`
	Unused      []string `yaml:"unused,omitempty"`

	// Error is the error code the step must fail with. A failing step
	// records nothing and submits no verdict.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the finished session.
type Assertion struct {
	Type     string `yaml:"type"`
	Count    int    `yaml:"count,omitempty"`
	Seq      int64  `yaml:"seq,omitempty"`
	Verdict  string `yaml:"verdict,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertTransitionCount = "transition_count"
	AssertBugCount        = "bug_count"
	AssertBugAt           = "bug_at"
	AssertVerdictCount    = "verdict_count"
)

var errorCodes = []string{
	string(ir.ErrCodeVocabularyGap),
	string(ir.ErrCodeModelingInconsistency),
	string(ir.ErrCodeStateViolation),
	string(ir.ErrCodeExportIntegrity),
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface at load time.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, ordered by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.StartedAt != "" {
		if _, err := time.Parse(time.RFC3339, s.StartedAt); err != nil {
			return fmt.Errorf("started_at: %w", err)
		}
	}

	for i, step := range s.Steps {
		if step.Trigger == "" {
			return fmt.Errorf("steps[%d]: trigger is required", i)
		}
		if step.App.Mode == "" {
			return fmt.Errorf("steps[%d]: app.mode is required", i)
		}
		if step.Verdict != "" {
			if _, err := ir.ParseVerdict(step.Verdict); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Error != "" && !slices.Contains(errorCodes, step.Expect.Error) {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, step.Expect.Error)
		}
		if step.Expect.Error != "" && step.Verdict != "" {
			return fmt.Errorf("steps[%d]: a step expected to fail cannot carry a verdict", i)
		}
		for _, pair := range step.Expect.Satisfied {
			if _, err := parsePair(pair); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTransitionCount, AssertBugCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertBugAt:
		if a.Seq <= 0 {
			return fmt.Errorf("assertions[%d]: seq is required for bug_at", index)
		}
	case AssertVerdictCount:
		if _, err := ir.ParseVerdict(a.Verdict); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for verdict_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// parsePair parses "INTENT<->CAPABILITY".
func parsePair(s string) (ir.PortPair, error) {
	intent, capability, ok := strings.Cut(s, "<->")
	if !ok || intent == "" || capability == "" {
		return ir.PortPair{}, fmt.Errorf("satisfied pair %q: want INTENT<->CAPABILITY", s)
	}
	return ir.PortPair{Intent: ir.IntentID(intent), Capability: ir.CapabilityID(capability)}, nil
}

// States returns the state pair the step records.
func (s Step) States() (ir.ApplicationState, ir.UserState) {
	return s.App.state(), s.User.state()
}

func (a AppSpec) state() ir.ApplicationState {
	return ir.ApplicationState{
		Mode:            ir.Mode(a.Mode),
		VisibleElements: ir.NewSet(toIDs[ir.ElementID](a.Elements)...),
		Capabilities:    ir.NewSet(toIDs[ir.CapabilityID](a.Capabilities)...),
	}
}

func (u UserSpec) state() ir.UserState {
	user := ir.UserState{Intents: ir.NewSet(toIDs[ir.IntentID](u.Intents)...)}
	if len(u.ExpectedVisible) > 0 {
		user.ExpectedVisible = ir.NewSet(toIDs[ir.ElementID](u.ExpectedVisible)...)
	}
	return user
}

func toIDs[T ~string](items []string) []T {
	out := make([]T, len(items))
	for i, s := range items {
		out[i] = T(s)
	}
	return out
}
