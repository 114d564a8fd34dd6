package host

import (
	"fmt"
	"sync"

	"github.com/roach88/portmatch/internal/ir"
)

// Practice modes.
const (
	ModeFreeText   ir.Mode = "FREE_TEXT"
	ModeGuided     ir.Mode = "GUIDED"
	ModeGuidedEdit ir.Mode = "GUIDED_EDIT"
)

// PracticeView is the observable state of the practice screen.
type PracticeView struct {
	// Phrases is the uploaded phrase list. Empty means free-text practice.
	Phrases []string `json:"phrases"`
	// Index is the current position in Phrases.
	Index int `json:"index"`
	// Editing is set while the current phrase is being edited.
	Editing bool `json:"editing"`
	// FreeText is the contents of the free-text input.
	FreeText string `json:"freeText"`
	// EditText is the contents of the phrase edit input.
	EditText string `json:"editText"`
	// Displayed is the phrase rendered in the bold display, when the host
	// reports it. Empty means not reported.
	Displayed string `json:"displayed,omitempty"`
	// Score is the pronunciation score of the results panel.
	Score *float64 `json:"score,omitempty"`

	HasRecording bool `json:"hasRecording"`
	HasResults   bool `json:"hasResults"`
}

// Violations lists the combinations in v that the practice screen can never
// legitimately show. An empty result means v is internally consistent.
func (v PracticeView) Violations() []string {
	var out []string
	if v.HasResults && !v.HasRecording {
		out = append(out, "results shown without a recording")
	}
	if v.HasResults && v.Score == nil {
		out = append(out, "results shown without a score")
	}
	if v.Editing && len(v.Phrases) == 0 {
		out = append(out, "phrase editing with an empty phrase list")
	}
	if len(v.Phrases) == 0 {
		return out
	}

	switch {
	case v.Index < 0:
		out = append(out, fmt.Sprintf("negative phrase index %d", v.Index))
	case v.Index >= len(v.Phrases):
		out = append(out, fmt.Sprintf("phrase index %d out of bounds (size=%d)", v.Index, len(v.Phrases)))
	case v.Mode() == ModeGuided && v.Displayed != "" && v.Displayed != v.Phrases[v.Index]:
		out = append(out, fmt.Sprintf("displayed phrase %q differs from list phrase %q at index %d",
			v.Displayed, v.Phrases[v.Index], v.Index))
	}
	return out
}

// Mode returns the practice mode the view is in.
func (v PracticeView) Mode() ir.Mode {
	switch {
	case len(v.Phrases) == 0:
		return ModeFreeText
	case v.Editing:
		return ModeGuidedEdit
	default:
		return ModeGuided
	}
}

// CurrentText returns the phrase the screen practices, or "" when none.
func (v PracticeView) CurrentText() string {
	switch v.Mode() {
	case ModeFreeText:
		return v.FreeText
	case ModeGuidedEdit:
		return v.EditText
	default:
		if v.Index >= 0 && v.Index < len(v.Phrases) {
			return v.Phrases[v.Index]
		}
		return ""
	}
}

// InferState derives the ApplicationState the practice screen should present
// for v. The timestamp is left zero for the oracle to stamp.
func InferState(v PracticeView) ir.ApplicationState {
	mode := v.Mode()
	return ir.ApplicationState{
		Mode:            mode,
		VisibleElements: inferElements(v, mode),
		Capabilities:    inferCapabilities(v, mode),
	}
}

func inferElements(v PracticeView, mode ir.Mode) ir.Set[ir.ElementID] {
	visible := ir.NewSet[ir.ElementID]("PHRASE_LIST_UPLOADER")

	switch mode {
	case ModeFreeText:
		visible.Add("TEXT_INPUT_FREE")
	case ModeGuided:
		for _, e := range []ir.ElementID{
			"PHRASE_DISPLAY_BOLD", "PREV_BUTTON", "NEXT_BUTTON", "JUMP_SELECTOR",
			"PROGRESS_BAR", "EDIT_BUTTON", "CLEAR_LIST_BUTTON", "TEXT_INPUT_FREE",
			"AUDIO_RECORDER",
		} {
			visible.Add(e)
		}
	case ModeGuidedEdit:
		for _, e := range []ir.ElementID{
			"TEXT_INPUT_EDIT", "BACK_TO_LIST_BUTTON", "PREV_BUTTON", "NEXT_BUTTON",
			"JUMP_SELECTOR", "PROGRESS_BAR",
		} {
			visible.Add(e)
		}
	}

	if v.CurrentText() != "" {
		visible.Add("AUDIO_PLAYER_TARGET_PRACTICE")
		visible.Add("AUDIO_RECORDER")
	}
	if v.HasRecording {
		visible.Add("AUDIO_PLAYER_USER_LIVE")
		visible.Add("CHECK_BUTTON")
		visible.Add("CLEAR_BUTTON")
	}
	if v.HasResults {
		visible.Add("RESULTS_PANEL")
		visible.Add("AUDIO_PLAYER_TARGET_RESULTS")
		visible.Add("AUDIO_PLAYER_USER_RESULTS")
		visible.Add("AUDIO_PLAYER_RECOGNIZED_TTS")
	}
	return visible
}

func inferCapabilities(v PracticeView, mode ir.Mode) ir.Set[ir.CapabilityID] {
	caps := ir.NewSet[ir.CapabilityID]("ACCEPT_UPLOAD")

	switch mode {
	case ModeFreeText:
		caps.Add("ACCEPT_TEXT")
	case ModeGuided:
		caps.Add("ACCEPT_PREV")
		caps.Add("ACCEPT_NEXT")
		// jumping needs somewhere to jump to
		if len(v.Phrases) > 1 {
			caps.Add("ACCEPT_JUMP")
		}
		caps.Add("ACCEPT_MODE_TOGGLE")
		caps.Add("ACCEPT_CLEAR_LIST")
		caps.Add("ACCEPT_TEXT")
		caps.Add("ACCEPT_RECORDING")
	case ModeGuidedEdit:
		caps.Add("ACCEPT_TEXT")
		caps.Add("ACCEPT_MODE_TOGGLE")
	}

	if v.CurrentText() != "" {
		caps.Add("PROVIDE_TARGET_AUDIO_PRACTICE")
		caps.Add("ACCEPT_RECORDING")
	}
	if v.HasRecording {
		caps.Add("PROVIDE_USER_AUDIO_LIVE")
		caps.Add("ACCEPT_CLEAR_RECORDING")
	}
	if v.HasResults {
		for _, c := range []ir.CapabilityID{
			"PROVIDE_RESULTS", "PROVIDE_TARGET_AUDIO_RESULTS", "PROVIDE_USER_AUDIO_RESULTS",
			"PROVIDE_RECOGNIZED_AUDIO", "PROVIDE_PHONEME_AUDIO_CORRECT", "PROVIDE_PHONEME_AUDIO_USER",
		} {
			caps.Add(c)
		}
	}
	return caps
}

// PracticeExtractor is an Extractor over a mutable PracticeView.
//
// Thread-safety: Set and ExtractApplicationState may be called from
// different goroutines.
type PracticeExtractor struct {
	mu   sync.Mutex
	view PracticeView
}

// NewPracticeExtractor creates an extractor starting at view.
func NewPracticeExtractor(view PracticeView) *PracticeExtractor {
	return &PracticeExtractor{view: cloneView(view)}
}

// Set replaces the observed view.
func (p *PracticeExtractor) Set(view PracticeView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = cloneView(view)
}

// Update applies fn to the observed view.
func (p *PracticeExtractor) Update(fn func(*PracticeView)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.view)
}

// View returns a copy of the observed view.
func (p *PracticeExtractor) View() PracticeView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneView(p.view)
}

// ExtractApplicationState implements Extractor.
func (p *PracticeExtractor) ExtractApplicationState() (ir.ApplicationState, error) {
	return InferState(p.View()), nil
}

// ExtractChecked implements StateChecker from a single read of the view.
func (p *PracticeExtractor) ExtractChecked() (ir.ApplicationState, []string, error) {
	v := p.View()
	return InferState(v), v.Violations(), nil
}

func cloneView(v PracticeView) PracticeView {
	v.Phrases = append([]string(nil), v.Phrases...)
	if v.Score != nil {
		score := *v.Score
		v.Score = &score
	}
	return v
}
