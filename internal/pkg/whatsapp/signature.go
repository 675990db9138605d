package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature checks the X-Hub-Signature-256 header the chat
// provider sends with every webhook: "sha256=" + hex HMAC-SHA256 of the raw
// body. Comparison is constant time.
func VerifyWebhookSignature(payload []byte, signatureHeader, appSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(appSecret)
	if sig == "" || secret == "" || len(payload) == 0 {
		return false
	}

	sig = strings.TrimPrefix(sig, "sha256=")
	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
