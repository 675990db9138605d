package controllers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/health", HandleHealth)
	app.Get("/webhooks/chat", HandleChatWebhookVerify)
	app.Post("/webhooks/chat", HandleChatWebhook)
	app.Post("/webhooks/billing", HandleBillingWebhook)
	return app
}

func TestHealth(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestChatWebhookVerifyHandshake(t *testing.T) {
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-me")
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET",
		"/webhooks/chat?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "12345", string(body), "the raw challenge must be echoed back")

	resp, err = app.Test(httptest.NewRequest("GET",
		"/webhooks/chat?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestChatWebhookRejectsBadSignatureWhenSecretConfigured(t *testing.T) {
	t.Setenv("WHATSAPP_APP_SECRET", "app-secret")
	app := newTestApp()

	req := httptest.NewRequest("POST", "/webhooks/chat", strings.NewReader(`{}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestChatWebhookAcksWithoutSecret(t *testing.T) {
	t.Setenv("WHATSAPP_APP_SECRET", "")
	app := newTestApp()

	// Empty envelopes are acked and dropped during extraction; the caller
	// always gets its 200.
	resp, err := app.Test(httptest.NewRequest("POST", "/webhooks/chat", strings.NewReader(`{}`)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestBillingWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "whsec")
	app := newTestApp()

	req := httptest.NewRequest("POST", "/webhooks/billing", strings.NewReader(`{"meta":{}}`))
	req.Header.Set("X-Signature", "deadbeef")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// A missing signature header is rejected the same way.
	resp, err = app.Test(httptest.NewRequest("POST", "/webhooks/billing", strings.NewReader(`{}`)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
