// Package checksum provides the content fingerprints stored in the catalog.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Text fingerprints a rendered page body. The body is hashed as UTF-8 bytes
// with no normalisation, so identical text always yields the same value.
func Text(body string) string {
	return Sum([]byte(body))
}

// WordCount counts whitespace-separated words in body.
func WordCount(body string) int {
	return len(strings.Fields(body))
}

// Short returns the first n hex characters of the fingerprint of s.
// It is used to derive stable synthetic identifiers.
func Short(s string, n int) string {
	full := Text(s)
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}
