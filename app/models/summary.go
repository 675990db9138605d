package models

import "time"

// Summary is an append-only record of one successful summarization.
type Summary struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Model       string    `gorm:"type:varchar(64)" json:"model"`
	InputChars  int       `gorm:"not null" json:"input_chars"`
	SummaryText string    `gorm:"type:text;not null" json:"summary_text"`
	CostUSD     *float64  `gorm:"type:decimal(10,6);default:null" json:"cost_usd,omitempty"`
	Fingerprint string    `gorm:"type:char(64);index" json:"fingerprint"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
