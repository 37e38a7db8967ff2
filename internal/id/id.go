package id

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns a random hex token used to correlate one request's log lines.
func New() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req-fallback-id"
	}
	return hex.EncodeToString(b[:])
}
