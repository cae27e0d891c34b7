// Package billing abstracts the payment provider behind a small Provider
// interface so the transition logic never depends on a vendor SDK directly.
//
// The package covers three provider interactions:
//
//   - Hosted checkout session creation for paid tier transitions. The
//     CorrelationToken {user, target tier, prior tier} rides along in the
//     session's custom data, so the asynchronous confirmation can be
//     reconciled without re-querying mutable local state.
//
//   - Recurring subscription cancellation, used when a user drops from a
//     paid recurring tier to the free tier.
//
//   - Webhook verification and normalization. ParseWebhook must receive the
//     raw request body untouched; signatures are computed over the exact
//     bytes the provider sent.
//
// PaddleProvider is the production implementation, built on the official
// Paddle Go SDK. Webhook delivery is at-least-once, so every Event carries
// the provider's event ID for replay deduplication downstream.
package billing
