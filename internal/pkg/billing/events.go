package billing

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// PlanOutcome is what a billing event name means for the user's plan.
type PlanOutcome int

const (
	// OutcomeNone leaves the plan untouched (unrecognized event names).
	OutcomeNone PlanOutcome = iota
	// OutcomePaid grants the paid plan.
	OutcomePaid
	// OutcomeFree demotes to the free plan.
	OutcomeFree
)

// Fixed allow-lists. Everything else is a deliberate no-op: the
// subscription row is still upserted so history is preserved.
var paidEvents = map[string]struct{}{
	"subscription_created":           {},
	"subscription_updated":           {},
	"subscription_payment_success":   {},
	"subscription_payment_recovered": {},
	"subscription_resumed":           {},
	"subscription_unpaused":          {},
}

var terminalEvents = map[string]struct{}{
	"subscription_cancelled":      {},
	"subscription_expired":        {},
	"subscription_paused":         {},
	"subscription_payment_failed": {},
}

// EventPlanOutcome maps a webhook event name to its plan effect.
func EventPlanOutcome(eventName string) PlanOutcome {
	name := strings.ToLower(strings.TrimSpace(eventName))
	if _, ok := paidEvents[name]; ok {
		return OutcomePaid
	}
	if _, ok := terminalEvents[name]; ok {
		return OutcomeFree
	}
	return OutcomeNone
}

// WebhookEvent is the normalized shape extracted from a LemonSqueezy
// webhook payload.
type WebhookEvent struct {
	EventName              string
	ProviderSubscriptionID string
	Status                 string
	CustomerID             string
	RenewsAt               *time.Time
	// UserPhone carries the opaque custom value embedded in the checkout
	// link, correlating the subscription back to a chat user.
	UserPhone string
	// TestMode is set for events fired against the provider's test store.
	TestMode bool
}

type rawWebhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		TestMode   bool   `json:"test_mode"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status     string `json:"status"`
			CustomerID int64  `json:"customer_id"`
			RenewsAt   string `json:"renews_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseWebhookEvent extracts the normalized event from a raw payload.
// Call only after signature verification.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw rawWebhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	out := &WebhookEvent{
		EventName:              strings.ToLower(strings.TrimSpace(raw.Meta.EventName)),
		ProviderSubscriptionID: strings.TrimSpace(raw.Data.ID),
		Status:                 strings.ToLower(strings.TrimSpace(raw.Data.Attributes.Status)),
		UserPhone:              strings.TrimSpace(raw.Meta.CustomData.UserID),
		TestMode:               raw.Meta.TestMode,
	}
	if raw.Data.Attributes.CustomerID > 0 {
		out.CustomerID = strconv.FormatInt(raw.Data.Attributes.CustomerID, 10)
	}
	if ts := strings.TrimSpace(raw.Data.Attributes.RenewsAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			out.RenewsAt = &t
		}
	}

	if out.EventName == "" {
		return nil, errors.New("billing webhook payload missing event name")
	}
	if out.ProviderSubscriptionID == "" {
		return nil, errors.New("billing webhook payload missing subscription id")
	}
	return out, nil
}
