// Package aggregate maintains the durable, fingerprint-keyed question
// dataset and the ledger of already-processed post ids.
package aggregate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint derives the dedup key for a question: NFC-normalize,
// lowercase, drop everything but letters (accents included) and digits,
// then hash. Case, whitespace and punctuation noise all collapse onto the
// same key while any wording change produces a different one.
func Fingerprint(text string) string {
	t := norm.NFC.String(strings.ToLower(strings.TrimSpace(text)))
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 0x00C0 && r <= 0x00FF) {
			b.WriteRune(r)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
