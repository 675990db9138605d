package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/TextFox/internal/pkg/env"
)

const defaultGraphAPIBaseURL = "https://graph.facebook.com/v19.0"

// ErrNotConfigured is returned lazily at first send when the provider
// credentials are absent. The process still boots without them.
var ErrNotConfigured = errors.New("whatsapp client is not configured (WHATSAPP_TOKEN / WHATSAPP_PHONE_ID)")

// Client sends outbound text messages via the provider's Cloud API.
type Client struct {
	Token      string
	PhoneID    string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a send client from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		Token:      strings.TrimSpace(env.GetEnv("WHATSAPP_TOKEN", "")),
		PhoneID:    strings.TrimSpace(env.GetEnv("WHATSAPP_PHONE_ID", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("WHATSAPP_API_BASE_URL", defaultGraphAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

// SendText delivers one plain text reply. The body is truncated to the
// provider's hard message-length limit; non-2xx responses are errors the
// worker routes to mark-error.
func (c *Client) SendText(ctx context.Context, recipient, body string) error {
	if c.Token == "" || c.PhoneID == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(recipient) == "" {
		return errors.New("recipient is required")
	}
	body = truncateRunes(body, MaxTextLen)

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             sendText{Body: body},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.APIBaseURL, c.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("whatsapp send failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}
