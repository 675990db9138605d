package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	USER_STATUS_ACTIVE  = "active"
	USER_STATUS_BLOCKED = "blocked"
)

const (
	LangAuto    = "auto"
	LangEnglish = "en"
	LangArabic  = "ar"
	LangSpanish = "es"
)

// User is one WhatsApp sender, created lazily on first inbound message.
type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Phone               string     `gorm:"uniqueIndex;type:varchar(32);not null" json:"-"`
	PhoneHash           string     `gorm:"type:char(64);index" json:"phone_hash"`
	Plan                string     `gorm:"type:varchar(50);default:'free';index" json:"plan" validate:"oneof=free pro"`
	Status              string     `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active blocked"`
	FreeRemaining       int        `gorm:"not null;default:0" json:"free_remaining" validate:"min=0"`
	PrivacyNoticeSentAt *time.Time `gorm:"type:timestamp;default:null" json:"privacy_notice_sent_at,omitempty"`
	TosAcceptedAt       *time.Time `gorm:"type:timestamp;default:null" json:"tos_accepted_at,omitempty"`
	TosVersion          string     `gorm:"type:varchar(20)" json:"tos_version"`
	Lang                string     `gorm:"type:varchar(8);default:'auto'" json:"lang" validate:"oneof=auto en ar es"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsBlocked reports whether the user has opted out of processing.
func (u *User) IsBlocked() bool {
	return u.Status == USER_STATUS_BLOCKED
}

// HashPhone returns the one-way hash used to reference a phone number in
// logs without storing the raw identifier there.
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}

// NormalizePhone strips formatting variance so "+4917..." and "4917..."
// address the same user.
func NormalizePhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// PhoneVariants returns the known representations of a phone identifier,
// used when a conditional claim must match rows written by either form.
func PhoneVariants(phone string) []string {
	bare := NormalizePhone(phone)
	return []string{bare, "+" + bare}
}

// IsSupportedLang reports whether code is a valid preference value.
func IsSupportedLang(code string) bool {
	switch code {
	case LangAuto, LangEnglish, LangArabic, LangSpanish:
		return true
	default:
		return false
	}
}
