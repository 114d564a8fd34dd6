// Package vocab holds the capability/intent vocabulary: the closed,
// versioned table of modes, capabilities, intents, visible elements and
// the static intent→capability ports.
//
// Vocabularies are authored in CUE and unified with the #Vocabulary
// schema before being compiled into Go lookups. Nothing is registered at
// runtime; an identifier missing from the table is a vocabulary gap.
package vocab
