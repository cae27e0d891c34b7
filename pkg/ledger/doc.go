// Package ledger keeps the payment audit trail for pack transitions.
//
// Every confirmed payment produces exactly one Entry, keyed on the
// provider's transaction reference. The webhook confirmer records an entry
// even when the subscription mutation itself was a replayed no-op; the
// dedup lives in the storage layer (unique index on external_ref with
// insert-or-ignore semantics), so the trail stays correct under
// at-least-once webhook delivery.
//
// The package intentionally mirrors the shape of an audit logger: a
// Recorder for writes, a Reader for reconciliation queries, and a Storage
// interface so Postgres and in-memory backends are interchangeable in tests.
package ledger
