package repository

import (
	"time"

	"github.com/ManuelReschke/TextFox/app/models"
	"gorm.io/gorm"
)

// EventRepository defines the durable queue operations. ClaimNext is the
// single concurrency-safety primitive the worker relies on: it must never
// hand the same row to two concurrent callers.
type EventRepository interface {
	Insert(event *models.InboundEvent) (bool, *models.InboundEvent, error)
	ClaimNext(now time.Time) (*models.InboundEvent, error)
	MarkDone(id uint, now time.Time) error
	MarkError(id uint, message string, now time.Time) error
	GetByID(id uint) (*models.InboundEvent, error)
}

// UserRepository defines user state operations. All mutations are targeted
// field updates, never whole-row saves, to minimize lost-update risk.
type UserRepository interface {
	GetOrCreateByPhone(phone string, freeQuota int) (*models.User, bool, error)
	GetByPhone(phone string) (*models.User, error)
	SetStatus(userID uint, status string) error
	SetLang(userID uint, lang string) error
	SetPlanByPhone(phone string, plan string) error
	SetPlanByID(userID uint, plan string) error
	ResetPreferences(userID uint, freeQuota int) error
	ClaimPrivacyNotice(phone string, now time.Time) (bool, error)
	ClaimTosAccepted(phone, version string, now time.Time) (bool, error)
	DecrementFreeRemaining(userID uint) (bool, error)
}

// SubscriptionRepository persists provider subscription state.
type SubscriptionRepository interface {
	Upsert(sub *models.Subscription) error
	GetByProviderSubscriptionID(provider, providerSubscriptionID string) (*models.Subscription, error)
}

// SummaryRepository appends summarization outcomes.
type SummaryRepository interface {
	Create(summary *models.Summary) error
	CountByUserID(userID uint) (int64, error)
}

// Repositories bundles all repository implementations.
type Repositories struct {
	Event        EventRepository
	User         UserRepository
	Subscription SubscriptionRepository
	Summary      SummaryRepository
}

// NewRepositories creates all repositories backed by the given DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Event:        NewEventRepository(db),
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Summary:      NewSummaryRepository(db),
	}
}
