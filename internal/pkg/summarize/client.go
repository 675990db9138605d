package summarize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ManuelReschke/TextFox/internal/pkg/env"
)

const (
	defaultModel         = openai.GPT4oMini
	defaultMaxInputChars = 6000
	defaultMaxRetries    = 3

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second

	systemInstruction = "Summarize the user's message in 1-2 plain sentences. No markdown, no preamble."
)

// ErrNotConfigured is returned on first use when no API key is present and
// dry-run mode is off. Missing summarization credentials must not prevent
// the rest of the pipeline from booting.
var ErrNotConfigured = errors.New("summarize: OPENAI_API_KEY is not configured")

// Result is one successful summarization outcome.
type Result struct {
	Text             string
	Model            string
	InputChars       int
	PromptTokens     int
	CompletionTokens int
	CostUSD          *float64
	Fingerprint      string
}

// Options configures a Client.
type Options struct {
	APIKey        string
	Model         string
	MaxInputChars int
	MaxRetries    int
	DryRun        bool
}

// Client produces short plain-language summaries via the OpenAI chat
// completion API, bounded by an externally owned concurrency Gate.
type Client struct {
	api  *openai.Client
	gate *Gate
	opts Options
}

// NewClient creates a summarization client. The gate is required and
// shared by reference with whoever owns process lifecycle.
func NewClient(gate *Gate, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = defaultMaxInputChars
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	c := &Client{gate: gate, opts: opts}
	if opts.APIKey != "" {
		c.api = openai.NewClient(opts.APIKey)
	}
	return c
}

// NewClientFromEnv builds a client from SUMMARY_* and OPENAI_API_KEY.
func NewClientFromEnv(gate *Gate) *Client {
	return NewClient(gate, Options{
		APIKey:        env.GetEnv("OPENAI_API_KEY", ""),
		Model:         env.GetEnv("SUMMARY_MODEL", defaultModel),
		MaxInputChars: env.GetEnvInt("SUMMARY_MAX_INPUT_CHARS", defaultMaxInputChars),
		MaxRetries:    env.GetEnvInt("SUMMARY_MAX_RETRIES", defaultMaxRetries),
		DryRun:        env.GetEnvBool("SUMMARY_DRY_RUN", false),
	})
}

// Summarize clips the input, then calls the external API under the
// concurrency gate, retrying rate limits, server errors and timeouts with
// exponential backoff. Total attempts never exceed MaxRetries+1.
func (c *Client) Summarize(ctx context.Context, text string) (*Result, error) {
	clipped := clip(text, c.opts.MaxInputChars)
	fp := fingerprint(c.opts.Model, clipped)

	if c.opts.DryRun {
		return &Result{
			Text:        fmt.Sprintf("[dry-run] summary of %d chars", len(clipped)),
			Model:       c.opts.Model,
			InputChars:  len(clipped),
			Fingerprint: fp,
		}, nil
	}
	if c.api == nil {
		return nil, ErrNotConfigured
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			log.Debugf("[Summarize] retry %d/%d after %s: %v", attempt, c.opts.MaxRetries, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := c.call(ctx, clipped, fp)
		if err == nil {
			return res, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("summarize: retries exhausted: %w", lastErr)
}

func (c *Client) call(ctx context.Context, clipped, fp string) (*Result, error) {
	if err := c.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.gate.Release()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: clipped},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("summarize: response contained no choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	promptTokens := resp.Usage.PromptTokens
	completionTokens := resp.Usage.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = approxTokens(clipped)
		completionTokens = approxTokens(out)
	}

	return &Result{
		Text:             out,
		Model:            c.opts.Model,
		InputChars:       len(clipped),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          estimateCost(c.opts.Model, promptTokens, completionTokens),
		Fingerprint:      fp,
	}, nil
}

// isRetryable classifies failures: rate limits, server errors and
// timeout-class failures retry; everything else propagates immediately.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// backoffDelay doubles the base delay per attempt, caps it, and adds up to
// 25% random jitter.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}

// clip truncates input to the configured character cap before any
// external call, never splitting a rune.
func clip(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars])
}

// fingerprint hashes model plus clipped input, identifying this exact
// request for auditing.
func fingerprint(model, clipped string) string {
	sum := sha256.Sum256([]byte(model + "\n" + clipped))
	return hex.EncodeToString(sum[:])
}
