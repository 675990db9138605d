package models

import "time"

// Counter names flushed from Redis into usage_stats.
const (
	StatEventsProcessed  = "events_processed"
	StatEventsFailed     = "events_failed"
	StatSummariesCreated = "summaries_created"
	StatRepliesSent      = "replies_sent"
)

// UsageStat is the durable flush target for the Redis pipeline counters.
type UsageStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"name"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
