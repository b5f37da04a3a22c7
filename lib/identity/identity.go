// Package identity derives the stable dedup key shared by every
// directory scraper. Two scrape results with the same key are the same
// logical person; the key includes the province so same-named people in
// different provinces never collapse.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"cpaintel-backend/lib/textutil"
)

// Hash returns the hex sha256 of the normalized full name and the
// lower-cased province, joined with a delimiter. Deterministic across
// runs and scrapers.
func Hash(fullName, province string) string {
	normalized := textutil.NormalizeName(fullName) + "|" + strings.ToLower(strings.TrimSpace(province))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
