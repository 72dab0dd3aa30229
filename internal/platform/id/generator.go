package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator creates opaque IDs for persisted records.
type Generator interface {
	NewID() (string, error)
}

// Prefixed makes 128-bit random IDs of the form "<prefix>_<32 hex chars>",
// e.g. id.Prefixed("mt") yields "mt_9f2c...". An empty prefix drops the
// separator.
type Prefixed string

func (p Prefixed) NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if p == "" {
		return hex.EncodeToString(raw[:]), nil
	}
	return string(p) + "_" + hex.EncodeToString(raw[:]), nil
}
