package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Package dedup produces deterministic content addresses for articles so the
// same story fetched from different providers (or on different runs) collapses
// to one key.

// keyHexLen truncates the SHA-256 digest to 128 bits, which is collision
// negligible at this scale.
const keyHexLen = 32

// Key derives the dedup key for an article from its headline, source, and
// publication date. Only the calendar date of publishedAt participates, so two
// timestamps on the same day always produce the same key.
func Key(headline, source string, publishedAt time.Time) string {
	day := publishedAt.Format("2006-01-02")
	return digest(headline + "|" + source + "|" + day)
}

// KeyFromID derives a dedup key from a provider-native article ID. Cheaper
// than Key when the provider guarantees stable IDs.
func KeyFromID(articleID, source string) string {
	return digest(articleID + "|" + source)
}

func digest(material string) string {
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:keyHexLen]
}
