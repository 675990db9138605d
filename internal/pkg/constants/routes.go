package constants

// Static route constants
const (
	HealthRoute         = "/health"
	MetricsRoute        = "/metrics"
	WebhooksRoute       = "/webhooks"
	ChatWebhookRoute    = "/chat"
	BillingWebhookRoute = "/billing"
)
