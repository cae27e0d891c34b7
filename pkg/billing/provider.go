package billing

import (
	"context"
	"time"
)

// Provider defines the minimal interface for payment provider integrations.
// The provider owns all payment complexity through hosted checkouts; this
// package never touches card data. Implementations must verify webhook
// signatures against the raw request body before parsing anything.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout session for a paid tier.
	// The correlation token travels in the session's custom data and comes
	// back unchanged in completion webhooks.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CancelRecurring requests cancellation of a recurring subscription on
	// the provider side. Used when a user drops to the free tier.
	CancelRecurring(ctx context.Context, providerSubID string) error

	// ParseWebhook verifies the signature over the raw payload and returns a
	// normalized event. Returns ErrInvalidSignature when verification fails.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest contains everything needed to open a checkout session.
type CheckoutRequest struct {
	TierID    string // provider's price ID
	Price     int64  // whole currency units, informational
	Currency  string
	Recurring bool
	Email     string           // optional billing email
	Token     CorrelationToken // reconciliation data echoed back by webhooks
}

// CheckoutSession represents a hosted checkout the user is redirected to.
type CheckoutSession struct {
	ID          string    // provider's session/transaction identifier
	RedirectURL string    // hosted checkout URL
	ExpiresAt   time.Time // session expiry on the provider side
}

// EventType is the normalized billing event type.
// Provider implementations map their own event names onto these.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventPaymentFailed       EventType = "payment_failed"
	EventPaymentRecovered    EventType = "payment_recovered"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventIgnored             EventType = "ignored"
)

// Event is a normalized webhook event from the provider.
type Event struct {
	ID            string           // provider's event ID, used for replay dedup
	Type          EventType        // normalized type
	ProviderEvent string           // original provider event name
	SessionID     string           // checkout session / transaction ID
	ProviderSubID string           // provider's recurring subscription ID, if any
	Amount        int64            // paid amount in whole currency units
	Currency      string           // ISO 4217 code
	Token         CorrelationToken // empty when the payload carried none
	OccurredAt    time.Time
}
