package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/app/repository"
	"github.com/ManuelReschke/TextFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/TextFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service reconciles provider subscription state into local tables.
type Service struct {
	subs  repository.SubscriptionRepository
	users repository.UserRepository
	// acceptTestEvents lets test-store webhooks through; off in production.
	acceptTestEvents bool
}

// NewService creates a billing service from injected repositories.
func NewService(subs repository.SubscriptionRepository, users repository.UserRepository) *Service {
	return &Service{
		subs:             subs,
		users:            users,
		acceptTestEvents: env.GetEnvBool("LEMONSQUEEZY_TEST_MODE", false),
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	repos := repository.NewRepositories(db)
	return NewService(repos.Subscription, repos.User)
}

// HandleEvent applies one parsed billing webhook event. The subscription
// row is always upserted first, so history survives even for event names
// with no plan effect; the plan mutation itself is idempotent on replay.
func (s *Service) HandleEvent(ctx context.Context, ev *WebhookEvent, rawPayload []byte) error {
	_ = ctx
	if ev == nil {
		return errors.New("billing event is required")
	}
	if ev.TestMode && !s.acceptTestEvents {
		log.Infof("[Billing] ignoring test-mode event %s for subscription %s", ev.EventName, ev.ProviderSubscriptionID)
		return nil
	}

	outcome := EventPlanOutcome(ev.EventName)
	plan := entitlements.PlanFree
	if outcome == OutcomePaid {
		plan = entitlements.PlanPro
	}

	var userID uint
	if phone := strings.TrimSpace(ev.UserPhone); phone != "" {
		user, err := s.users.GetByPhone(phone)
		if err == nil {
			userID = user.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	sub := &models.Subscription{
		Provider:               string(models.ProviderLemonSqueezy),
		ProviderSubscriptionID: ev.ProviderSubscriptionID,
		UserID:                 userID,
		Status:                 ev.Status,
		Plan:                   string(plan),
		RenewsAt:               ev.RenewsAt,
		CustomerID:             ev.CustomerID,
		RawPayloadJSON:         string(rawPayload),
	}
	if existing, err := s.subs.GetByProviderSubscriptionID(sub.Provider, sub.ProviderSubscriptionID); err == nil {
		// Never lose an established user correlation, and keep the stored
		// plan when the event name has no plan effect.
		if sub.UserID == 0 {
			sub.UserID = existing.UserID
		}
		if outcome == OutcomeNone {
			sub.Plan = existing.Plan
		}
	}
	if err := s.subs.Upsert(sub); err != nil {
		return err
	}

	if outcome == OutcomeNone {
		return nil
	}

	// Prefer the correlated user id persisted on the subscription row;
	// fall back to the phone the checkout embedded.
	if sub.UserID != 0 {
		return s.users.SetPlanByID(sub.UserID, string(plan))
	}
	if phone := strings.TrimSpace(ev.UserPhone); phone != "" {
		return s.users.SetPlanByPhone(phone, string(plan))
	}
	// No way to correlate this subscription to a chat user yet; the row is
	// stored and a later event carrying custom data will finish the job.
	return nil
}
