package transition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/packwise/packwise/pkg/billing"
	"github.com/packwise/packwise/pkg/catalog"
	"github.com/packwise/packwise/pkg/ledger"
)

// Confirmer is the stateless, idempotent handler for asynchronous payment
// events from the billing provider. It finalizes upgrades that the executor
// left pending and drives the recurring-payment state machine
// (active → suspended → active, active → cancelled).
type Confirmer struct {
	catalog      *catalog.Catalog
	provider     billing.Provider
	store        Store
	recorder     ledger.Recorder
	guard        ReplayGuard // optional fast-path, store stays authoritative
	notifier     Notifier    // optional, best-effort
	providerName string
	log          *slog.Logger
}

// ConfirmerOption configures a Confirmer.
type ConfirmerOption func(*Confirmer)

// WithReplayGuard installs a fast-path replay filter for event IDs.
func WithReplayGuard(guard ReplayGuard) ConfirmerOption {
	return func(c *Confirmer) {
		if guard != nil {
			c.guard = guard
		}
	}
}

// WithNotifier installs a best-effort post-confirmation notifier.
func WithNotifier(n Notifier) ConfirmerOption {
	return func(c *Confirmer) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithConfirmerLogger sets the structured logger. Defaults to slog.Default.
func WithConfirmerLogger(log *slog.Logger) ConfirmerOption {
	return func(c *Confirmer) {
		if log != nil {
			c.log = log
		}
	}
}

// WithProviderName overrides the provider name recorded in ledger entries.
func WithProviderName(name string) ConfirmerOption {
	return func(c *Confirmer) {
		if name != "" {
			c.providerName = name
		}
	}
}

// NewConfirmer creates a payment confirmation handler.
// Panics if required dependencies are nil to fail fast during initialization.
func NewConfirmer(cat *catalog.Catalog, provider billing.Provider, store Store, recorder ledger.Recorder, opts ...ConfirmerOption) *Confirmer {
	if cat == nil {
		panic("transition: catalog is required")
	}
	if provider == nil {
		panic("transition: billing provider is required")
	}
	if store == nil {
		panic("transition: store is required")
	}
	if recorder == nil {
		panic("transition: ledger recorder is required")
	}

	c := &Confirmer{
		catalog:      cat,
		provider:     provider,
		store:        store,
		recorder:     recorder,
		providerName: "paddle",
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle verifies and applies one provider event.
//
// Error semantics map straight to webhook response codes:
//
//   - billing.ErrInvalidSignature: reject, no mutation (HTTP 400)
//   - ErrMalformedEvent, ErrUnprocessableEvent: logged, acknowledge so the
//     provider stops redelivering an unfixable event (HTTP 200)
//   - ErrStoreUnavailable: transient, ask for redelivery (HTTP 5xx)
//   - nil: processed or correctly ignored (HTTP 200)
func (c *Confirmer) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := c.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return err
		}
		// Signature was fine but the payload is garbage; redelivery of the
		// same bytes cannot succeed either.
		c.log.ErrorContext(ctx, "unparseable webhook payload", "error", err)
		return errors.Join(ErrMalformedEvent, err)
	}

	switch event.Type {
	case billing.EventCheckoutCompleted:
		return c.handleCheckoutCompleted(ctx, event)
	case billing.EventPaymentFailed:
		return c.moveByProviderSub(ctx, event, StatusActive, StatusSuspended)
	case billing.EventPaymentRecovered:
		return c.moveByProviderSub(ctx, event, StatusSuspended, StatusActive)
	case billing.EventSubscriptionDeleted:
		return c.cancelByProviderSub(ctx, event)
	default:
		c.log.DebugContext(ctx, "ignoring webhook event",
			"event_id", event.ID,
			"provider_event", event.ProviderEvent,
		)
		return nil
	}
}

func (c *Confirmer) handleCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	if !event.Token.Valid() {
		c.log.ErrorContext(ctx, "checkout completed without a usable correlation token",
			"event_id", event.ID,
			"session_id", event.SessionID,
		)
		return ErrMalformedEvent
	}
	if event.SessionID == "" {
		// Without a session reference there is no idempotency key and no
		// ledger external ref; redelivery of the same bytes cannot fix it.
		c.log.ErrorContext(ctx, "checkout completed without a session reference",
			"event_id", event.ID,
		)
		return ErrMalformedEvent
	}

	// Fast-path replay filter. Any guard failure falls through to the
	// store-level dedup, so errors are only logged.
	if c.guard != nil {
		seen, err := c.guard.Seen(ctx, event.ID)
		if err != nil {
			c.log.WarnContext(ctx, "replay guard unavailable, relying on store dedup",
				"event_id", event.ID,
				"error", err,
			)
		} else if seen {
			c.log.InfoContext(ctx, "webhook replay dropped by guard", "event_id", event.ID)
			return nil
		}
	}

	target, err := c.catalog.Get(event.Token.TargetTierID)
	if err != nil {
		// The tier vanished from the catalog between checkout and
		// confirmation. Redelivery cannot fix this; log loudly and ack.
		c.log.ErrorContext(ctx, "confirmed payment references unknown tier",
			"event_id", event.ID,
			"tier_id", event.Token.TargetTierID,
		)
		return errors.Join(ErrUnprocessableEvent, err)
	}

	_, applied, err := c.applySwitch(ctx, event, target)
	if err != nil {
		return err
	}

	// The audit entry is written even when the switch was a replayed no-op;
	// the storage deduplicates on the external reference, so redelivery
	// still yields exactly one entry.
	entry := ledger.Entry{
		UserID:      event.Token.UserID,
		TierID:      target.ID,
		Amount:      event.Amount,
		Currency:    event.Currency,
		ExternalRef: event.SessionID,
		Provider:    c.providerName,
	}
	if entry.Amount == 0 {
		entry.Amount = target.Price
	}
	if entry.Currency == "" {
		entry.Currency = target.Currency
	}
	if err := c.recorder.Record(ctx, entry); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	// The event is durable from here on. Marking earlier would let a
	// transient store failure eat the provider's redelivery.
	if c.guard != nil {
		if err := c.guard.MarkSeen(ctx, event.ID); err != nil {
			c.log.WarnContext(ctx, "failed to mark webhook event as processed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}

	if err := c.store.CompletePendingCheckout(ctx, event.SessionID, time.Now().UTC()); err != nil {
		c.log.WarnContext(ctx, "failed to complete pending checkout",
			"session_id", event.SessionID,
			"error", err,
		)
	}

	if applied && c.notifier != nil {
		n := ChangeNotification{
			UserID:      event.Token.UserID,
			TierID:      target.ID,
			TierName:    target.Name,
			PriorTierID: event.Token.PriorTierID,
			Amount:      entry.Amount,
			Currency:    entry.Currency,
			ExternalRef: event.SessionID,
		}
		if err := c.notifier.PackChanged(ctx, n); err != nil {
			c.log.WarnContext(ctx, "pack change notification failed",
				"user_id", event.Token.UserID,
				"error", err,
			)
		}
	}

	c.log.InfoContext(ctx, "payment confirmed",
		"user_id", event.Token.UserID,
		"tier_id", target.ID,
		"session_id", event.SessionID,
		"applied", applied,
	)
	return nil
}

// applySwitch performs the idempotent atomic transition, retrying once on a
// benign conflict race before surfacing a retryable error.
func (c *Confirmer) applySwitch(ctx context.Context, event *billing.Event, target catalog.Tier) (*Subscription, bool, error) {
	params := SwitchParams{
		UserID:            event.Token.UserID,
		TargetTierID:      target.ID,
		CheckoutSessionID: event.SessionID,
		ProviderSubID:     event.ProviderSubID,
	}

	sub, applied, err := c.store.SwitchIdempotent(ctx, params)
	if errors.Is(err, ErrStoreConflict) {
		sub, applied, err = c.store.SwitchIdempotent(ctx, params)
	}
	if err != nil {
		return nil, false, errors.Join(ErrStoreUnavailable, err)
	}
	return sub, applied, nil
}

// moveByProviderSub drives the recurring-payment state machine.
func (c *Confirmer) moveByProviderSub(ctx context.Context, event *billing.Event, from, to Status) error {
	if event.ProviderSubID == "" {
		c.log.ErrorContext(ctx, "recurring payment event without subscription reference",
			"event_id", event.ID,
			"provider_event", event.ProviderEvent,
		)
		return ErrMalformedEvent
	}

	applied, err := c.store.UpdateStatusByProviderSubID(ctx, event.ProviderSubID, from, to)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			// Nothing local references this provider subscription; likely a
			// stale event for an already replaced row. Ack to stop retries.
			c.log.WarnContext(ctx, "recurring payment event for unknown subscription",
				"provider_sub_id", event.ProviderSubID,
			)
			return nil
		}
		return errors.Join(ErrStoreUnavailable, err)
	}

	c.log.InfoContext(ctx, "subscription status moved",
		"provider_sub_id", event.ProviderSubID,
		"from", string(from),
		"to", string(to),
		"applied", applied,
	)
	return nil
}

func (c *Confirmer) cancelByProviderSub(ctx context.Context, event *billing.Event) error {
	if event.ProviderSubID == "" {
		return ErrMalformedEvent
	}

	// Deletion cancels the row whether it was active or suspended.
	applied, err := c.store.UpdateStatusByProviderSubID(ctx, event.ProviderSubID, StatusActive, StatusCancelled)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !applied {
		if _, err := c.store.UpdateStatusByProviderSubID(ctx, event.ProviderSubID, StatusSuspended, StatusCancelled); err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			return errors.Join(ErrStoreUnavailable, err)
		}
	}

	c.log.InfoContext(ctx, "provider subscription deleted",
		"provider_sub_id", event.ProviderSubID,
	)
	return nil
}
