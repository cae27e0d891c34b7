// Package packs composes the pack transition service: HTTP transport,
// Postgres persistence, redis replay guard, Paddle billing, and outbound
// notifications, wired around the decision logic in pkg/transition.
//
// The package exposes three layers:
//
//   - Router mounts the JSON endpoints (tier listing, current tier,
//     transition requests, and the provider webhook).
//   - PGStore / PGLedger implement the store contracts on pgx; MemStore /
//     MemLedger mirror their semantics in memory for tests.
//   - Run is the composition root: it loads env configuration, runs goose
//     migrations, and serves the router with graceful shutdown.
//
// Authentication is out of scope. The router reads the caller's user ID
// from the request context via UserIDFromContext; the host application's
// auth middleware is responsible for putting it there.
package packs
