package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for changing the encoding later without colliding ids.
const (
	DomainSequence = "statefuzz/sequence/v1"
	DomainReport   = "statefuzz/report/v1"
	DomainCampaign = "statefuzz/campaign/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data). The separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID hashes the canonical JSON form of v under domain.
func ContentID(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content id (%s): %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustContentID is like ContentID but panics on error. Use only with
// values built from IR types, which always marshal.
func MustContentID(domain string, v any) string {
	id, err := ContentID(domain, v)
	if err != nil {
		panic(err)
	}
	return id
}
