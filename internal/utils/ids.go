package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// URLToID derives the deterministic 16-char hex item key for a URL.
// Identical URL always maps to the identical key, which is what makes
// collection idempotent.
func URLToID(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:8])
}

// NewRunID builds a unique pipeline run identifier.
func NewRunID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return "run_" + time.Now().UTC().Format("20060102_150405") + "_" + hex.EncodeToString(b[:])
}
