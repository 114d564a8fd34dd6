package export

import (
	"fmt"

	"github.com/roach88/portmatch/internal/ir"
)

// CheckIntegrity verifies that sequence numbers are positive and strictly
// increasing. The first offender is reported as EXPORT_INTEGRITY.
func CheckIntegrity(transitions []ir.Transition) error {
	var prev int64
	for _, t := range transitions {
		if t.Seq <= prev {
			return ir.NewExportIntegrity(t.Seq, prev)
		}
		prev = t.Seq
	}
	return nil
}

// Build converts a session into its export document: metadata, the full
// transition history (UNVALIDATED included) and the derived bug list.
func Build(s ir.Session) (ir.Document, error) {
	if err := CheckIntegrity(s.Transitions); err != nil {
		return ir.Document{}, err
	}

	doc := ir.Document{
		SessionID:         s.ID,
		StartedAt:         ir.FormatTime(s.StartedAt),
		VocabularyVersion: s.VocabularyVersion,
		Transitions:       make([]ir.DocTransition, len(s.Transitions)),
		Bugs:              []ir.DocBug{},
	}
	for i, t := range s.Transitions {
		doc.Transitions[i] = ir.ToDocTransition(t)
	}
	for _, b := range Bugs(s) {
		doc.Bugs = append(doc.Bugs, ir.DocBug{Seq: b.Seq, Description: b.Description})
	}
	return doc, nil
}

// Export builds the document and encodes it as canonical JSON.
// Never mutates s.
func Export(s ir.Session) ([]byte, error) {
	doc, err := Build(s)
	if err != nil {
		return nil, err
	}
	return Encode(doc)
}

// Encode serializes a document as canonical JSON.
func Encode(doc ir.Document) ([]byte, error) {
	data, err := ir.MarshalCanonical(doc.IRValue())
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", doc.SessionID, err)
	}
	return data, nil
}

// Digest returns the content digest of an encoded document.
func Digest(data []byte) string {
	return ir.SessionDigest(data)
}
