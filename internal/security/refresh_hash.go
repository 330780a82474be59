package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the hex HMAC-SHA256 of token keyed by pepper. Only
// this digest is stored; the raw token is handed to the client once.
func HashRefreshToken(token, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// RefreshTokenHashEqual compares token against storedHash in constant time.
func RefreshTokenHashEqual(token, storedHash, pepper string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	provided := HashRefreshToken(token, pepper)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(storedHash)) == 1
}
