// Package signature verifies Monnify webhook signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Header is the request header carrying the webhook signature.
const Header = "monnify-signature"

// Sign returns the lowercase hex HMAC-SHA512 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
// An empty secret, signature or body never verifies.
func Verify(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" || len(body) == 0 {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}
