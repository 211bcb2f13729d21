package utils

import (
    "crypto/sha256"
    "encoding/hex"
    "strings"
)

// EmailHash6 returns the first six hex characters of the SHA-256 digest of
// the lowercase, whitespace-trimmed email address.  It is the second half of
// the QR payload and ties a ticket to the booking contact.
func EmailHash6(email string) string {
    sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
    return hex.EncodeToString(sum[:])[:6]
}
