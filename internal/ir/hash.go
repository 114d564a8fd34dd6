package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainSession is the domain prefix for session document digests.
// The version suffix allows a future algorithm migration.
const DomainSession = "portmatch/session/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SessionDigest returns the content digest of a canonical export document.
// Two runs that export byte-identical documents share a digest.
func SessionDigest(document []byte) string {
	return hashWithDomain(DomainSession, document)
}
