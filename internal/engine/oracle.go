package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/vocab"
)

// Oracle drives one test session through INACTIVE → ACTIVE → CLOSED.
//
// Thread-safety: none. A single actor calls the Oracle sequentially; every
// method completes before returning and never blocks, except AskVerdict,
// which waits on the operator.
//
// INVARIANTS:
//   - transitions are append-only with strictly increasing Seq from 1
//   - only the most recent transition's verdict can change, and only once
//   - a rejected operation leaves the session untouched
//   - CLOSED is terminal; a new session needs a new Oracle
type Oracle struct {
	matcher *Matcher
	clock   *Clock
	now     NowFunc
	ids     SessionIDGenerator
	logger  *slog.Logger
	metrics *Metrics

	state    State
	session  ir.Session
	lastGaps []*ir.Error
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Oracle) { o.logger = l }
}

// WithNow sets the wall-clock source for timestamps. Default: SystemNow.
func WithNow(now NowFunc) Option {
	return func(o *Oracle) { o.now = now }
}

// WithIDGenerator sets the session id source. Default: UUIDv7Generator.
func WithIDGenerator(g SessionIDGenerator) Option {
	return func(o *Oracle) { o.ids = g }
}

// WithMetrics sets the metrics sink. Default: unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Oracle) { o.metrics = m }
}

// NewOracle creates an INACTIVE oracle over vocabulary v.
func NewOracle(v *vocab.Vocabulary, opts ...Option) *Oracle {
	o := &Oracle{
		matcher: NewMatcher(v),
		clock:   NewClock(),
		now:     SystemNow,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		state:   StateInactive,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// State returns the lifecycle state.
func (o *Oracle) State() State {
	return o.state
}

// IsActive reports whether the oracle accepts transitions.
func (o *Oracle) IsActive() bool {
	return o.state == StateActive
}

// Matcher returns the matcher the oracle records with.
func (o *Oracle) Matcher() *Matcher {
	return o.matcher
}

// advance applies op to the lifecycle or returns a STATE_VIOLATION.
func (o *Oracle) advance(op Op, seq int64) error {
	next, ok := transitionFor(o.state, op)
	if !ok {
		err := ir.NewStateViolation(seq, string(op), string(o.state), rejectionCause(o.state, op))
		o.reject(err)
		return err
	}
	o.state = next
	return nil
}

func (o *Oracle) reject(err error) {
	o.metrics.observeError(err)
	o.logger.Warn("oracle operation rejected", "error", err)
}

// Enable starts a new session and returns its id.
func (o *Oracle) Enable() (string, error) {
	if err := o.advance(OpEnable, 0); err != nil {
		return "", err
	}

	o.session = ir.Session{
		ID:                o.ids.Generate(),
		StartedAt:         o.now().UTC(),
		VocabularyVersion: o.matcher.vocab.Version,
		Transitions:       []ir.Transition{},
	}
	o.metrics.SessionsActive.Inc()
	o.logger.Info("session enabled",
		"session_id", o.session.ID,
		"vocabulary", o.session.VocabularyVersion,
	)
	return o.session.ID, nil
}

// Close stops accepting transitions. Recorded history is kept as is.
func (o *Oracle) Close() error {
	if err := o.advance(OpClose, 0); err != nil {
		return err
	}
	o.metrics.SessionsActive.Dec()
	o.logger.Info("session closed",
		"session_id", o.session.ID,
		"transitions", len(o.session.Transitions),
	)
	return nil
}

// Disable is an alias for Close.
func (o *Oracle) Disable() error {
	return o.Close()
}

// RecordTransition matches the state pair and appends an UNVALIDATED
// transition, returning its sequence number.
//
// Both states are deep-copied; zero timestamps are stamped with the
// transition time. A modeling inconsistency is returned before anything is
// appended. Vocabulary gaps are logged and available from LastGaps.
func (o *Oracle) RecordTransition(trigger string, app ir.ApplicationState, user ir.UserState) (int64, error) {
	seq := o.clock.Peek()
	if err := o.advance(OpRecord, seq); err != nil {
		return 0, err
	}

	eval, err := o.matcher.evaluate(seq, app, user)
	if err != nil {
		o.metrics.observeError(err)
		o.logger.Error("modeling inconsistency",
			"session_id", o.session.ID,
			"seq", seq,
			"trigger", trigger,
			"error", err,
		)
		return 0, err
	}

	for _, gap := range eval.Gaps {
		o.metrics.VocabularyGaps.WithLabelValues(gap.Details["kind"]).Inc()
		o.logger.Warn("vocabulary gap",
			"session_id", o.session.ID,
			"seq", seq,
			gap.Details["kind"], gap.Details["id"],
		)
	}

	ts := o.now().UTC()
	appCopy := app.Clone()
	if appCopy.Timestamp.IsZero() {
		appCopy.Timestamp = ts
	}
	userCopy := user.Clone()
	if userCopy.Timestamp.IsZero() {
		userCopy.Timestamp = ts
	}

	t := ir.Transition{
		Seq:       o.clock.Next(),
		Trigger:   trigger,
		AppState:  appCopy,
		UserState: userCopy,
		Match:     eval.Result,
		Verdict:   ir.VerdictUnvalidated,
		Timestamp: ts,
	}
	o.session.Transitions = append(o.session.Transitions, t)
	o.lastGaps = eval.Gaps
	o.metrics.TransitionsRecorded.Inc()

	o.logger.Debug("transition recorded",
		"session_id", o.session.ID,
		"seq", t.Seq,
		"trigger", trigger,
		"satisfied", len(t.Match.Satisfied),
		"unsatisfied", len(t.Match.UnsatisfiedIntents),
		"unused", len(t.Match.UnusedCapabilities),
	)
	return t.Seq, nil
}

// LastGaps returns the vocabulary gaps found by the most recent successful
// RecordTransition.
func (o *Oracle) LastGaps() []*ir.Error {
	return append([]*ir.Error(nil), o.lastGaps...)
}

// SubmitVerdict sets the verdict of the most recent transition.
//
// The verdict must be MATCHES or MISMATCH (ErrInvalidVerdict otherwise).
// It is write-once: if the latest transition is already validated the call
// fails with STATE_VIOLATION; record a new transition to re-validate. An
// empty note is stored as no note.
func (o *Oracle) SubmitVerdict(verdict ir.Verdict, note string) error {
	var seq int64
	if n := len(o.session.Transitions); n > 0 && o.state == StateActive {
		seq = o.session.Transitions[n-1].Seq
	}
	if err := o.advance(OpVerdict, seq); err != nil {
		return err
	}
	if verdict != ir.VerdictMatches && verdict != ir.VerdictMismatch {
		return fmt.Errorf("submit verdict %q at transition %d: %w", verdict, seq, ir.ErrInvalidVerdict)
	}

	last, err := o.pending()
	if err != nil {
		return err
	}

	last.Verdict = verdict
	if note != "" {
		last.Note = &note
	}
	o.metrics.Verdicts.WithLabelValues(string(verdict)).Inc()
	o.logger.Info("verdict submitted",
		"session_id", o.session.ID,
		"seq", last.Seq,
		"verdict", verdict,
	)
	return nil
}

// pending returns the most recent transition if it still awaits a verdict.
func (o *Oracle) pending() (*ir.Transition, error) {
	n := len(o.session.Transitions)
	if n == 0 {
		err := ir.NewStateViolation(0, string(OpVerdict), string(o.state), "no transition recorded")
		o.reject(err)
		return nil, err
	}
	last := &o.session.Transitions[n-1]
	if last.Verdict != ir.VerdictUnvalidated {
		err := ir.NewStateViolation(last.Seq, string(OpVerdict), string(o.state),
			fmt.Sprintf("transition %d already validated as %s", last.Seq, last.Verdict))
		o.reject(err)
		return nil, err
	}
	return last, nil
}

// Session returns a deep copy of the session.
func (o *Oracle) Session() (ir.Session, error) {
	if err := o.advance(OpRead, 0); err != nil {
		return ir.Session{}, err
	}
	return o.session.Clone(), nil
}

// Bugs derives the bug list from MISMATCH transitions.
func (o *Oracle) Bugs() ([]ir.Bug, error) {
	if err := o.advance(OpRead, 0); err != nil {
		return nil, err
	}
	return export.Bugs(o.session), nil
}

// Document builds the export document without serializing it.
func (o *Oracle) Document() (ir.Document, error) {
	if err := o.advance(OpExport, 0); err != nil {
		return ir.Document{}, err
	}
	doc, err := export.Build(o.session)
	if err != nil {
		o.reject(err)
		return ir.Document{}, err
	}
	return doc, nil
}

// Export serializes the session to its canonical document. Repeated calls
// on an unchanged session return identical bytes.
func (o *Oracle) Export() ([]byte, error) {
	if err := o.advance(OpExport, 0); err != nil {
		return nil, err
	}
	data, err := export.Export(o.session)
	if err != nil {
		o.reject(err)
		return nil, err
	}
	return data, nil
}
