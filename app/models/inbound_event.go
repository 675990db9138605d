package models

import (
	"errors"
	"fmt"
	"time"
)

// Provider is the closed set of webhook sources feeding the event queue.
type Provider string

const (
	ProviderWhatsApp     Provider = "whatsapp"
	ProviderLemonSqueezy Provider = "lemonsqueezy"
)

// ParseProvider maps a stored provider string back to the closed enum.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderWhatsApp:
		return ProviderWhatsApp, nil
	case ProviderLemonSqueezy:
		return ProviderLemonSqueezy, nil
	default:
		return "", fmt.Errorf("unknown event provider: %q", s)
	}
}

const (
	EventStatusPending    = "pending"
	EventStatusProcessing = "processing"
	EventStatusDone       = "done"
	EventStatusError      = "error"
	EventStatusDead       = "dead"
)

const (
	// MaxEventAttempts bounds queue-level retries before dead-lettering.
	MaxEventAttempts = 5

	// EventRetryBaseDelay is the reschedule delay after the first failure;
	// it doubles per attempt up to EventRetryMaxDelay.
	EventRetryBaseDelay = 60 * time.Second
	EventRetryMaxDelay  = time.Hour

	// MaxLastErrorLen caps the persisted error message.
	MaxLastErrorLen = 500

	// MaxEventTextLen caps the extracted message text stored on the row.
	MaxEventTextLen = 4096
)

var ErrNoEligibleEvent = errors.New("no eligible event")

// InboundEvent is one durable queue row per accepted webhook delivery.
// Created by the ingestion controllers, mutated only by the worker
// (claim -> done/error/dead), never deleted.
type InboundEvent struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_inbound_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID   string     `gorm:"type:varchar(191);not null;index:ux_inbound_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType         string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadHash       string     `gorm:"type:char(64);not null" json:"payload_hash"`
	Sender            string     `gorm:"type:varchar(32);index" json:"sender"`
	MessageType       string     `gorm:"type:varchar(32)" json:"message_type"`
	TextBody          string     `gorm:"type:text" json:"text_body"`
	ProviderTimestamp *time.Time `gorm:"type:timestamp;default:null" json:"provider_timestamp,omitempty"`
	Status            string     `gorm:"type:varchar(16);not null;default:'pending';index:idx_inbound_events_status_next,priority:1" json:"status"`
	Attempts          int        `gorm:"not null;default:0" json:"attempts"`
	LockedAt          *time.Time `gorm:"type:timestamp;default:null" json:"locked_at,omitempty"`
	NextAttemptAt     *time.Time `gorm:"type:timestamp;default:null;index:idx_inbound_events_status_next,priority:2" json:"next_attempt_at,omitempty"`
	LastError         string     `gorm:"type:varchar(500)" json:"last_error"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RetryDelay returns the reschedule delay for a row that has failed
// `attempts` times: 60s doubling per attempt, capped at one hour.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := EventRetryBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= EventRetryMaxDelay {
			return EventRetryMaxDelay
		}
	}
	return d
}

// TruncateError trims an error message to the persistable length.
func TruncateError(msg string) string {
	if len(msg) > MaxLastErrorLen {
		return msg[:MaxLastErrorLen]
	}
	return msg
}
