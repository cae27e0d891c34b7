package packs

import "time"

// Config holds service-level settings for the pack transition service.
// Store, provider, and HTTP settings live in their own packages' Config
// structs and are loaded separately through pkg/config.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"packwise"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// CheckoutTTL bounds how long a pending checkout stays reconcilable.
	CheckoutTTL time.Duration `env:"CHECKOUT_PENDING_TTL" envDefault:"24h"`

	// WebhookReplayTTL is the retention window of the redis replay guard.
	WebhookReplayTTL time.Duration `env:"WEBHOOK_REPLAY_TTL" envDefault:"72h"`

	// EventWebhookURL, when set, enables signed pack.changed notifications
	// to a downstream consumer.
	EventWebhookURL    string `env:"PACK_EVENTS_WEBHOOK_URL"`
	EventWebhookSecret string `env:"PACK_EVENTS_WEBHOOK_SECRET"`
}
