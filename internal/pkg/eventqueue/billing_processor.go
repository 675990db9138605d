package eventqueue

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/TextFox/app/models"
	"github.com/ManuelReschke/TextFox/internal/pkg/billing"
)

// BillingProcessor handles one claimed billing event: parse the stored raw
// payload, then reconcile subscription and plan state.
type BillingProcessor struct {
	service *billing.Service
}

func NewBillingProcessor(service *billing.Service) *BillingProcessor {
	return &BillingProcessor{service: service}
}

// Process parses the raw webhook body persisted on the queue row. The
// billing controller stores the verified body verbatim in TextBody so the
// worker can re-parse it independent of delivery timing.
func (p *BillingProcessor) Process(ctx context.Context, ev *models.InboundEvent) error {
	raw := []byte(ev.TextBody)
	parsed, err := billing.ParseWebhookEvent(raw)
	if err != nil {
		return fmt.Errorf("parse billing payload: %w", err)
	}
	if err := p.service.HandleEvent(ctx, parsed, raw); err != nil {
		return fmt.Errorf("reconcile subscription %s: %w", parsed.ProviderSubscriptionID, err)
	}
	return nil
}
