// Package catalog holds the pricing tier definitions a user can subscribe to.
//
// Tiers are immutable after loading: the Catalog is built once at startup
// from a TierSource and answers lookups without any locking. The active tier
// of a user is never stored in the catalog; it is always derived from the
// subscription store, so the catalog stays a pure read model.
//
// Paid tiers should use the payment provider's price ID as their tier ID.
// This lets checkout sessions and webhook payloads resolve back to a catalog
// entry without a mapping table.
//
// # Usage
//
//	src := catalog.NewInMemSource(
//		catalog.Tier{ID: "free", Name: "Free", Price: 0, Public: true},
//		catalog.Tier{ID: "pri_pro_monthly", Name: "Pro", Price: 50, Currency: "USD", Recurring: true, Public: true},
//	)
//
//	cat, err := catalog.New(ctx, src)
//	if err != nil {
//		// invalid tier configuration
//	}
//
//	tier, err := cat.Get("pri_pro_monthly")
package catalog
