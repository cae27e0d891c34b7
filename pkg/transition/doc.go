// Package transition implements the pack change decision logic: how a user
// moves between pricing tiers and how that interacts with the payment
// provider's asynchronous confirmation.
//
// # Classification
//
// Classify is a pure function from (current price, target tier) to a tagged
// Classification. Only upgrades require payment; cheaper non-free targets
// apply immediately. The classification is computed once per request and
// trusted downstream instead of being re-derived from ad hoc price checks.
//
// # Execution
//
// Service.Change re-derives the classification from stored state (caller
// input is never trusted) and either applies the transition in one atomic
// store operation or opens a hosted checkout session carrying a correlation
// token. No local subscription row is mutated on the paid path; a
// PendingCheckout record is the only local trace until the provider
// confirms.
//
// # Confirmation
//
// Confirmer.Handle processes provider webhooks. Delivery is at-least-once,
// so everything it does is idempotent: the subscription switch is keyed on
// the checkout session ID, the ledger entry on the provider transaction
// reference, and an optional redis ReplayGuard short-circuits obvious
// replays before they reach the store.
//
// # Concurrency
//
// The executor and the confirmer run in separate processes, so the "one
// active subscription per user" invariant lives in the store (partial
// unique index), not in application locks. A unique-violation race is
// treated as benign: re-read, re-apply once, then surface ErrStoreConflict.
package transition
