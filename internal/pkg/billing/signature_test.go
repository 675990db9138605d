package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	secret := "whsec_test"

	assert.True(t, VerifyWebhookSignature(body, signBody(body, secret), secret))

	// Hex casing from the provider must not matter.
	assert.True(t, VerifyWebhookSignature(body, strings.ToUpper(signBody(body, secret)), secret))

	assert.False(t, VerifyWebhookSignature(body, signBody(body, "other-secret"), secret))
	assert.False(t, VerifyWebhookSignature([]byte(`tampered`), signBody(body, secret), secret))
	assert.False(t, VerifyWebhookSignature(body, "not-hex", secret))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
	assert.False(t, VerifyWebhookSignature(body, signBody(body, secret), ""), "empty secret must never verify")
	assert.False(t, VerifyWebhookSignature(nil, signBody(nil, secret), secret), "empty body must never verify")
}
