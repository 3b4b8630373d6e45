package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyHMAC checks an HMAC-SHA256 signature over the raw body using the
// shared secret. Receivers of run notifications use it on X-Signature.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(sum(secret, body), b)
}

// SignHMAC returns lowercase hex of HMAC-SHA256 for use in headers
func SignHMAC(secret string, body []byte) string {
	return hex.EncodeToString(sum(secret, body))
}

func sum(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
