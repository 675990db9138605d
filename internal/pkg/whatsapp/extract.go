package whatsapp

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// InboundKind classifies what a webhook delivery carried.
type InboundKind string

const (
	KindMessage InboundKind = "message"
	KindStatus  InboundKind = "status"
	KindNone    InboundKind = "none"
)

// Inbound is the minimal, bounded field set extracted from the provider's
// nested webhook envelope.
type Inbound struct {
	Kind        InboundKind
	MessageID   string
	Sender      string
	MessageType string
	Text        string
	Timestamp   *time.Time
}

// MaxTextLen caps extracted message text before it is stored or processed.
const MaxTextLen = 4096

var ErrNotActionable = errors.New("webhook payload carries nothing actionable")

type webhookEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
					Button *struct {
						Text string `json:"text"`
					} `json:"button"`
					Interactive *struct {
						ButtonReply *struct {
							Title string `json:"title"`
						} `json:"button_reply"`
						ListReply *struct {
							Title string `json:"title"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ExtractInbound walks entry[0].changes[0].value and returns either the
// first inbound text message or a delivery/read receipt. Anything without a
// non-empty body and sender is reported as not actionable.
func ExtractInbound(payload []byte) (*Inbound, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if len(env.Entry) == 0 || len(env.Entry[0].Changes) == 0 {
		return nil, ErrNotActionable
	}

	value := env.Entry[0].Changes[0].Value

	if len(value.Messages) > 0 {
		msg := value.Messages[0]
		text := ""
		switch {
		case msg.Text != nil:
			text = msg.Text.Body
		case msg.Button != nil:
			text = msg.Button.Text
		case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
			text = msg.Interactive.ButtonReply.Title
		case msg.Interactive != nil && msg.Interactive.ListReply != nil:
			text = msg.Interactive.ListReply.Title
		}

		text = strings.TrimSpace(text)
		if text == "" || strings.TrimSpace(msg.From) == "" {
			return nil, ErrNotActionable
		}
		text = truncateRunes(text, MaxTextLen)

		return &Inbound{
			Kind:        KindMessage,
			MessageID:   strings.TrimSpace(msg.ID),
			Sender:      strings.TrimSpace(msg.From),
			MessageType: msg.Type,
			Text:        text,
			Timestamp:   parseUnixTimestamp(msg.Timestamp),
		}, nil
	}

	if len(value.Statuses) > 0 {
		st := value.Statuses[0]
		return &Inbound{
			Kind:        KindStatus,
			MessageID:   strings.TrimSpace(st.ID),
			MessageType: st.Status,
		}, nil
	}

	return nil, ErrNotActionable
}

func parseUnixTimestamp(raw string) *time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// truncateRunes caps s at max characters without splitting a rune.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
