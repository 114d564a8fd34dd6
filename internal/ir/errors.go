package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeVocabularyGap indicates an identifier with no vocabulary entry.
	// Recovered locally: the intent is treated as unsatisfied.
	ErrCodeVocabularyGap ErrorCode = "VOCABULARY_GAP"

	// ErrCodeModelingInconsistency indicates the adapter reported a capability
	// (or mode) the vocabulary forbids. Fatal for the transition.
	ErrCodeModelingInconsistency ErrorCode = "MODELING_INCONSISTENCY"

	// ErrCodeStateViolation indicates an operation outside its lifecycle state.
	ErrCodeStateViolation ErrorCode = "STATE_VIOLATION"

	// ErrCodeExportIntegrity indicates a transition list out of sequence order.
	ErrCodeExportIntegrity ErrorCode = "EXPORT_INTEGRITY"
)

// ErrInvalidVerdict is returned when a caller submits UNVALIDATED or an
// unknown verdict value.
var ErrInvalidVerdict = errors.New("verdict must be MATCHES or MISMATCH")

// Error is the typed error surfaced by the engine and exporter.
//
// Seq is the offending transition's sequence number. For a transition that
// was rejected before being appended it is the number it would have received.
// Zero means no transition is involved (e.g. enabling twice).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Seq identifies the offending transition.
	Seq int64

	// Message is a human-readable cause.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Seq > 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewVocabularyGap reports an identifier missing from the vocabulary.
// kind is "intent", "capability", "element" or "port".
func NewVocabularyGap(seq int64, kind, id string) *Error {
	return &Error{
		Code:    ErrCodeVocabularyGap,
		Seq:     seq,
		Message: fmt.Sprintf("%s %q has no vocabulary entry", kind, id),
		Details: map[string]string{"kind": kind, "id": id},
	}
}

// NewModelingInconsistency reports a capability illegal for the mode.
func NewModelingInconsistency(seq int64, mode Mode, capability CapabilityID) *Error {
	return &Error{
		Code:    ErrCodeModelingInconsistency,
		Seq:     seq,
		Message: fmt.Sprintf("capability %s is not legal in mode %s", capability, mode),
		Details: map[string]string{"mode": string(mode), "capability": string(capability)},
	}
}

// NewUnknownMode reports a mode the vocabulary does not define.
func NewUnknownMode(seq int64, mode Mode) *Error {
	return &Error{
		Code:    ErrCodeModelingInconsistency,
		Seq:     seq,
		Message: fmt.Sprintf("mode %q has no vocabulary entry", mode),
		Details: map[string]string{"mode": string(mode)},
	}
}

// NewStateViolation reports an operation invoked outside its lifecycle state.
func NewStateViolation(seq int64, op, state, cause string) *Error {
	return &Error{
		Code:    ErrCodeStateViolation,
		Seq:     seq,
		Message: fmt.Sprintf("%s rejected in state %s: %s", op, state, cause),
		Details: map[string]string{"operation": op, "state": state},
	}
}

// NewExportIntegrity reports a transition list out of sequence order.
func NewExportIntegrity(seq, previous int64) *Error {
	return &Error{
		Code:    ErrCodeExportIntegrity,
		Seq:     seq,
		Message: fmt.Sprintf("transition sequence out of order: %d follows %d", seq, previous),
		Details: map[string]string{
			"seq":      fmt.Sprintf("%d", seq),
			"previous": fmt.Sprintf("%d", previous),
		},
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsVocabularyGap reports whether err is a vocabulary gap.
// Uses errors.As to handle wrapped errors.
func IsVocabularyGap(err error) bool { return hasCode(err, ErrCodeVocabularyGap) }

// IsModelingInconsistency reports whether err is a modeling inconsistency.
func IsModelingInconsistency(err error) bool { return hasCode(err, ErrCodeModelingInconsistency) }

// IsStateViolation reports whether err is a lifecycle state violation.
func IsStateViolation(err error) bool { return hasCode(err, ErrCodeStateViolation) }

// IsExportIntegrity reports whether err is an export integrity failure.
func IsExportIntegrity(err error) bool { return hasCode(err, ErrCodeExportIntegrity) }

// CodeOf returns the error code of a typed error, or "" for anything else.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
