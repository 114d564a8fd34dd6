package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/portmatch/internal/engine"
	"github.com/roach88/portmatch/internal/ir"
)

// ErrNoExtractor is returned by Capture when the host has no Extractor.
var ErrNoExtractor = errors.New("host has no state extractor")

// Archiver stores exported session documents. *store.Store implements it.
type Archiver interface {
	SaveSession(ctx context.Context, data []byte) (bool, error)
}

// Status describes the current session.
type Status struct {
	State       engine.State `json:"state"`
	SessionID   string       `json:"sessionId,omitempty"`
	Transitions int          `json:"transitions"`
	// Pending is set when the latest transition awaits a verdict.
	Pending     bool `json:"pending"`
	AutoCapture bool `json:"autoCapture"`
}

// Host is the serialized boundary between an application and its oracle.
//
// Every method takes the host lock, so the oracle sees one operation at a
// time. Enabling after a session was closed starts a fresh oracle.
type Host struct {
	mu          sync.Mutex
	newOracle   func() *engine.Oracle
	oracle      *engine.Oracle
	extractor   Extractor
	archive     Archiver
	autoCapture bool
	logger      *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithExtractor sets the state extractor used by Capture and Observe.
func WithExtractor(e Extractor) Option {
	return func(h *Host) { h.extractor = e }
}

// WithArchive makes Disable save the exported session.
func WithArchive(a Archiver) Option {
	return func(h *Host) { h.archive = a }
}

// WithAutoCapture makes Observe record a transition on every call.
func WithAutoCapture(on bool) Option {
	return func(h *Host) { h.autoCapture = on }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// New creates a host. newOracle is called for the first session and again
// whenever a closed session is replaced.
func New(newOracle func() *engine.Oracle, opts ...Option) *Host {
	h := &Host{
		newOracle: newOracle,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.oracle = newOracle()
	return h
}

// Enable starts a session and returns its id.
func (h *Host) Enable() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.oracle.State() == engine.StateClosed {
		h.oracle = h.newOracle()
	}
	return h.oracle.Enable()
}

// Disable closes the active session. With an archive configured the
// exported document is saved; the session stays closed even if saving fails.
func (h *Host) Disable(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.oracle.Close(); err != nil {
		return err
	}
	if h.archive == nil {
		return nil
	}

	data, err := h.oracle.Export()
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	inserted, err := h.archive.SaveSession(ctx, data)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}
	h.logger.Info("session archived", "inserted", inserted, "bytes", len(data))
	return nil
}

// IsActive reports whether a session accepts transitions.
func (h *Host) IsActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.oracle.IsActive()
}

// SetAutoCapture toggles auto-capture.
func (h *Host) SetAutoCapture(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoCapture = on
}

// Status reports the lifecycle state and the size of the session.
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{State: h.oracle.State(), AutoCapture: h.autoCapture}
	if st.State == engine.StateInactive {
		return st
	}
	s, err := h.oracle.Session()
	if err != nil {
		return st
	}
	st.SessionID = s.ID
	st.Transitions = len(s.Transitions)
	if n := len(s.Transitions); n > 0 && st.State == engine.StateActive {
		st.Pending = s.Transitions[n-1].Verdict == ir.VerdictUnvalidated
	}
	return st
}

// Record appends a transition for an explicit state pair.
func (h *Host) Record(trigger string, app ir.ApplicationState, user ir.UserState) (int64, []*ir.Error, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seq, err := h.oracle.RecordTransition(trigger, app, user)
	if err != nil {
		return 0, nil, err
	}
	return seq, h.oracle.LastGaps(), nil
}

// Captured is the outcome of Capture and Observe.
type Captured struct {
	Seq  int64
	Gaps []*ir.Error
	// Violations are impossible combinations a StateChecker found in the
	// extracted state. The transition is recorded regardless.
	Violations []string
}

// Capture extracts the application state and records it with the given
// intents.
func (h *Host) Capture(trigger string, intents ...ir.IntentID) (Captured, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capture(trigger, intents)
}

// Observe records a transition with no intents when auto-capture is on and a
// session is active. recorded reports whether anything was appended.
func (h *Host) Observe(trigger string) (c Captured, recorded bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.autoCapture || !h.oracle.IsActive() {
		return Captured{}, false, nil
	}
	c, err = h.capture(trigger, nil)
	if err != nil {
		return Captured{}, false, err
	}
	return c, true, nil
}

func (h *Host) capture(trigger string, intents []ir.IntentID) (Captured, error) {
	if h.extractor == nil {
		return Captured{}, ErrNoExtractor
	}

	var (
		app        ir.ApplicationState
		violations []string
		err        error
	)
	if checker, ok := h.extractor.(StateChecker); ok {
		app, violations, err = checker.ExtractChecked()
	} else {
		app, err = h.extractor.ExtractApplicationState()
	}
	if err != nil {
		return Captured{}, fmt.Errorf("extract application state: %w", err)
	}

	seq, err := h.oracle.RecordTransition(trigger, app, ir.UserState{Intents: ir.NewSet(intents...)})
	if err != nil {
		return Captured{}, err
	}
	for _, v := range violations {
		h.logger.Warn("impossible application state", "seq", seq, "trigger", trigger, "violation", v)
	}
	return Captured{Seq: seq, Gaps: h.oracle.LastGaps(), Violations: violations}, nil
}

// SubmitVerdict validates the most recent transition.
func (h *Host) SubmitVerdict(verdict ir.Verdict, note string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.oracle.SubmitVerdict(verdict, note)
}

// Export returns the canonical export document of the current session.
func (h *Host) Export() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.oracle.Export()
}

// Bugs returns the bugs found so far.
func (h *Host) Bugs() ([]ir.Bug, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.oracle.Bugs()
}
