// Package utils provides utility functions for filename sanitization, UUID generation
// and opaque token generation.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for storage.
//     Input: string (filename)
//     Output: string (sanitized filename)
//   - GenerateUUID: Returns a new UUID string.
//     Output: string (UUID)
//   - GenerateToken: Returns a hex encoded random token and its SHA-256 digest.
//
// Used throughout the backend for safe file handling, unique IDs and reset links.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename strips directories and diacritics and replaces anything
// outside [a-zA-Z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	base := filepath.Base(name)
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), base)
	if err == nil {
		base = folded
	}
	safe := unsafeChars.ReplaceAllString(base, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateToken returns a random token of byteLength bytes (hex encoded) together with
// the hex SHA-256 digest that should be stored instead of the token itself.
func GenerateToken(byteLength int) (string, string, error) {
	if byteLength <= 0 {
		byteLength = 20
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("rand.Read: %w", err)
	}
	token := hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
