package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainState = "objwatch/state/v1"
	DomainEvent = "objwatch/event/v1"
)

// DomainHash computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func DomainHash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash returns the content hash of a graph. Two graphs that are Equal
// have the same StateHash regardless of identity.
func StateHash(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return DomainHash(DomainState, canonical), nil
}

// MustStateHash is like StateHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStateHash(v Value) string {
	h, err := StateHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
