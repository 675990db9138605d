package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSendText(t *testing.T) {
	var got sendTextRequest
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{Token: "tok", PhoneID: "12345", APIBaseURL: srv.URL, HTTPClient: srv.Client()}

	err := c.SendText(context.Background(), "4915112345678", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/12345/messages", gotPath)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "4915112345678", got.To)
	assert.Equal(t, "hello", got.Text.Body)
}

func TestSendTextTruncatesToProviderLimit(t *testing.T) {
	var got sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{Token: "tok", PhoneID: "12345", APIBaseURL: srv.URL, HTTPClient: srv.Client()}

	if err := c.SendText(context.Background(), "491511", strings.Repeat("x", MaxTextLen+100)); err != nil {
		t.Fatalf("send: %v", err)
	}
	assert.Len(t, got.Text.Body, MaxTextLen)

	if err := c.SendText(context.Background(), "491511", strings.Repeat("é", MaxTextLen+100)); err != nil {
		t.Fatalf("send multibyte: %v", err)
	}
	assert.True(t, utf8.ValidString(got.Text.Body))
	assert.Equal(t, MaxTextLen, utf8.RuneCountInString(got.Text.Body))
}

func TestSendTextNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := &Client{Token: "tok", PhoneID: "12345", APIBaseURL: srv.URL, HTTPClient: srv.Client()}

	err := c.SendText(context.Background(), "491511", "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
}

func TestSendTextRequiresConfiguration(t *testing.T) {
	c := &Client{}
	assert.ErrorIs(t, c.SendText(context.Background(), "491511", "hi"), ErrNotConfigured)

	c = &Client{Token: "tok", PhoneID: "1", APIBaseURL: "http://localhost:0", HTTPClient: http.DefaultClient}
	assert.Error(t, c.SendText(context.Background(), "   ", "hi"))
}
