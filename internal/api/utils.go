package api

import (
	"crypto/rand"
	"encoding/base64"
)

// generateRandomString returns a URL-safe string of exactly length chars,
// used as the OAuth2 state.
func generateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}
