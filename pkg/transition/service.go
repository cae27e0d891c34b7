package transition

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/packwise/packwise/pkg/billing"
	"github.com/packwise/packwise/pkg/catalog"
)

// ChangeStatus tells the caller how their transition request was resolved.
type ChangeStatus string

const (
	ChangeImmediate       ChangeStatus = "immediate"        // store already mutated, new tier is live
	ChangePaymentRequired ChangeStatus = "payment_required" // redirect to checkout, nothing mutated yet
)

// ChangeResult is the outcome of a transition request.
type ChangeResult struct {
	Status       ChangeStatus
	ActiveTierID string // set on immediate transitions
	RedirectURL  string // set on payment-required transitions
	SessionID    string // provider checkout session, set on payment-required transitions
}

// Service executes pack transitions. It re-derives the classification from
// the store's current state on every call instead of trusting anything the
// caller sends, so a spoofed request cannot skip the payment step.
type Service struct {
	catalog     *catalog.Catalog
	provider    billing.Provider
	store       Store
	log         *slog.Logger
	checkoutTTL time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCheckoutTTL overrides how long a pending checkout record is considered
// reconcilable before expiry sweeps may discard it.
func WithCheckoutTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.checkoutTTL = ttl
		}
	}
}

// NewService creates a transition executor.
// Panics if required dependencies are nil to fail fast during initialization.
func NewService(cat *catalog.Catalog, provider billing.Provider, store Store, opts ...ServiceOption) *Service {
	if cat == nil {
		panic("transition: catalog is required")
	}
	if provider == nil {
		panic("transition: billing provider is required")
	}
	if store == nil {
		panic("transition: store is required")
	}

	s := &Service{
		catalog:     cat,
		provider:    provider,
		store:       store,
		log:         slog.Default(),
		checkoutTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Change moves a user towards the target tier.
//
// Immediate transitions (downgrade, same-price, downgrade-to-free) mutate
// the store within this call. Upgrades return a checkout redirect and leave
// the store untouched until the provider confirms payment via webhook.
func (s *Service) Change(ctx context.Context, userID uuid.UUID, targetTierID string) (*ChangeResult, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	target, err := s.catalog.Get(targetTierID)
	if err != nil {
		return nil, err
	}

	current, err := s.currentSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	cls := s.classifyAgainst(current, target)

	if cls.Immediate {
		return s.applyImmediate(ctx, userID, current, target, cls)
	}
	return s.startCheckout(ctx, userID, current, target)
}

// CurrentTier returns the user's active tier, derived from the subscription
// store. The free tier fallback is implicit: no active row means the caller
// should treat the user as unsubscribed.
func (s *Service) CurrentTier(ctx context.Context, userID uuid.UUID) (catalog.Tier, error) {
	if userID == uuid.Nil {
		return catalog.Tier{}, ErrUnauthorized
	}

	current, err := s.currentSubscription(ctx, userID)
	if err != nil {
		return catalog.Tier{}, err
	}
	if current == nil {
		return catalog.Tier{}, ErrNoActiveSubscription
	}
	return s.catalog.Get(current.TierID)
}

// currentSubscription loads the active row, mapping "none" to nil.
func (s *Service) currentSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	current, err := s.store.GetActive(ctx, userID)
	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, ErrNoActiveSubscription):
		return nil, nil
	default:
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
}

// classifyAgainst derives the classification from the stored state.
// A missing active subscription prices as the free tier.
func (s *Service) classifyAgainst(current *Subscription, target catalog.Tier) Classification {
	var currentPrice int64
	if current != nil {
		if tier, err := s.catalog.Get(current.TierID); err == nil {
			currentPrice = tier.Price
		}
		// A tier removed from the catalog prices as free: the user can only
		// move away from it, and any paid target becomes an upgrade.
	}
	return Classify(currentPrice, target)
}

func (s *Service) applyImmediate(ctx context.Context, userID uuid.UUID, current *Subscription, target catalog.Tier, cls Classification) (*ChangeResult, error) {
	// Drop the provider-side recurring payment before the local switch.
	// Provider failures are logged only: local state is the source of truth
	// for entitlement, and a dangling provider subscription is recoverable
	// while a blocked downgrade is a user-facing failure.
	if cls.Kind == KindFreefall && current != nil && current.ProviderSubID != "" {
		if err := s.provider.CancelRecurring(ctx, current.ProviderSubID); err != nil {
			s.log.ErrorContext(ctx, "failed to cancel recurring payment on provider",
				"user_id", userID,
				"provider_sub_id", current.ProviderSubID,
				"error", err,
			)
		}
	}

	params := SwitchParams{
		UserID:       userID,
		TargetTierID: target.ID,
	}

	sub, err := s.store.Switch(ctx, params)
	if errors.Is(err, ErrStoreConflict) {
		// Benign race with a concurrent transition: the switch cancels
		// whichever row is active, so re-applying once is enough. A second
		// conflict means the user is genuinely racing themselves and should
		// just retry.
		sub, err = s.store.Switch(ctx, params)
	}
	if err != nil {
		if errors.Is(err, ErrStoreConflict) {
			return nil, err
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	s.log.InfoContext(ctx, "pack transition applied",
		"user_id", userID,
		"tier_id", sub.TierID,
		"kind", string(cls.Kind),
	)

	return &ChangeResult{
		Status:       ChangeImmediate,
		ActiveTierID: sub.TierID,
	}, nil
}

func (s *Service) startCheckout(ctx context.Context, userID uuid.UUID, current *Subscription, target catalog.Tier) (*ChangeResult, error) {
	token := billing.CorrelationToken{
		UserID:       userID,
		TargetTierID: target.ID,
	}
	if current != nil {
		token.PriorTierID = current.TierID
	}

	// No local mutation precedes provider success: if session creation fails
	// there is no partial state to clean up.
	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		TierID:    target.ID,
		Price:     target.Price,
		Currency:  target.Currency,
		Recurring: target.Recurring,
		Token:     token,
	})
	if err != nil {
		return nil, err
	}

	// Persist the local trace of the redirect so abandoned checkouts can be
	// reconciled or expired. Best effort: the correlation token on the
	// session already carries everything the confirmation needs, so a failed
	// insert must not void a checkout the provider has already created.
	now := time.Now().UTC()
	pending := PendingCheckout{
		SessionID:    session.ID,
		UserID:       userID,
		TargetTierID: target.ID,
		PriorTierID:  token.PriorTierID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.checkoutTTL),
	}
	if err := s.store.CreatePendingCheckout(ctx, pending); err != nil {
		s.log.ErrorContext(ctx, "failed to persist pending checkout",
			"user_id", userID,
			"session_id", session.ID,
			"error", err,
		)
	}

	s.log.InfoContext(ctx, "checkout session created",
		"user_id", userID,
		"tier_id", target.ID,
		"session_id", session.ID,
	)

	return &ChangeResult{
		Status:      ChangePaymentRequired,
		RedirectURL: session.RedirectURL,
		SessionID:   session.ID,
	}, nil
}
