package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyShopifyHmac checks the x-shopify-hmac-sha256 header: base64 of
// HMAC-SHA256 over the exact raw request bytes, keyed with the app secret.
func VerifyShopifyHmac(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
