package transition

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SwitchParams describes one atomic cancel-and-activate operation. Whichever
// row is currently active gets cancelled regardless of its tier: on the
// webhook path the payment has already cleared, so entitlement follows the
// money even if the user moved tiers while the checkout was open.
type SwitchParams struct {
	UserID            uuid.UUID
	TargetTierID      string
	CheckoutSessionID string // set on paid transitions, doubles as the idempotency key
	ProviderSubID     string // provider's recurring subscription ID when known
}

// PendingCheckout is the local trace of a checkout session the user was
// redirected to but has not completed yet. Without it an abandoned checkout
// would leave no record to reconcile or expire.
type PendingCheckout struct {
	SessionID    string
	UserID       uuid.UUID
	TargetTierID string
	PriorTierID  string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	CompletedAt  *time.Time
}

// Store is the persistence contract for subscriptions. All mutations are
// single atomic operations; the invariant "at most one active subscription
// per user" must be enforced by the store itself (partial unique index or
// equivalent compare-and-swap), because the executor and the webhook
// confirmer run in independently scaled processes.
type Store interface {
	// GetActive returns the user's active subscription.
	// Returns ErrNoActiveSubscription when the user has none.
	GetActive(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Switch atomically cancels the user's active subscription (if any) and
	// activates a new one at the target tier, within a single transaction.
	// Returns ErrStoreConflict when a concurrent transition won the race.
	Switch(ctx context.Context, params SwitchParams) (*Subscription, error)

	// SwitchIdempotent behaves like Switch but is keyed on
	// params.CheckoutSessionID: if a subscription created from the same
	// session already exists the call is a no-op and returns it with
	// applied=false. Webhook deliveries are at-least-once, so replays of the
	// same session must not produce a second row.
	SwitchIdempotent(ctx context.Context, params SwitchParams) (sub *Subscription, applied bool, err error)

	// GetByProviderSubID finds the newest subscription row tied to a
	// provider recurring subscription. Returns ErrSubscriptionNotFound.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// UpdateStatusByProviderSubID moves the row tied to a provider recurring
	// subscription from one status to another. A row not in the expected
	// status is left untouched and reported via applied=false.
	UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, from, to Status) (applied bool, err error)

	// CreatePendingCheckout records the local trace of a checkout redirect.
	CreatePendingCheckout(ctx context.Context, pending PendingCheckout) error

	// CompletePendingCheckout marks a pending checkout as completed.
	// Unknown session IDs are a no-op.
	CompletePendingCheckout(ctx context.Context, sessionID string, completedAt time.Time) error
}
