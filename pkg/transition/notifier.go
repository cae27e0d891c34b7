package transition

import (
	"context"

	"github.com/google/uuid"
)

// ChangeNotification describes a finalized pack transition for downstream
// consumers (receipt emails, outbound webhooks).
type ChangeNotification struct {
	UserID      uuid.UUID
	TierID      string
	TierName    string
	PriorTierID string
	Amount      int64
	Currency    string
	ExternalRef string
}

// Notifier is called after a paid transition is finalized. Implementations
// must be best-effort: a notification failure never affects the webhook
// acknowledgment, the confirmer only logs it.
type Notifier interface {
	PackChanged(ctx context.Context, n ChangeNotification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n ChangeNotification) error

func (f NotifierFunc) PackChanged(ctx context.Context, n ChangeNotification) error {
	return f(ctx, n)
}
