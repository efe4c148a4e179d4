package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashString returns the hex SHA-256 of the input.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// NormalizeText collapses all runs of whitespace to single spaces and trims.
// Content hashes are computed over the normalized form so formatting-only
// edits do not invalidate cached embeddings.
func NormalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// HashContent hashes the normalized form of the text.
func HashContent(text string) string {
	return HashString(NormalizeText(text))
}
