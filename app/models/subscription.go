package models

import "time"

const (
	SubStatusActive    = "active"
	SubStatusOnTrial   = "on_trial"
	SubStatusPastDue   = "past_due"
	SubStatusCancelled = "cancelled"
	SubStatusExpired   = "expired"
	SubStatusPaused    = "paused"
	SubStatusUnpaid    = "unpaid"
)

// Subscription mirrors a provider subscription and maps it to an internal
// plan. Upserted idempotently keyed by provider + provider subscription id,
// never deleted.
type Subscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Provider               string     `gorm:"type:varchar(20);not null;index:ux_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	UserID                 uint       `gorm:"index" json:"user_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	Plan                   string     `gorm:"type:varchar(50);not null;default:'free'" json:"plan"`
	RenewsAt               *time.Time `gorm:"type:timestamp;default:null" json:"renews_at,omitempty"`
	CustomerID             string     `gorm:"type:varchar(191);index" json:"customer_id"`
	RawPayloadJSON         string     `gorm:"type:longtext" json:"raw_payload_json"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
