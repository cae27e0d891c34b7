package transition

import "errors"

var (
	ErrUnauthorized         = errors.New("no verified caller identity")
	ErrNoActiveSubscription = errors.New("no active subscription for user")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	ErrStoreConflict    = errors.New("concurrent transition detected")
	ErrStoreUnavailable = errors.New("subscription store unavailable")

	ErrMalformedEvent     = errors.New("webhook event is missing reconciliation data")
	ErrUnprocessableEvent = errors.New("webhook event references state that no longer exists")
)
