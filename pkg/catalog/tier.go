package catalog

// Tier describes a subscription pack a user can be assigned to.
// For paid tiers the ID should be set to the payment provider's price ID
// so checkout sessions and webhook payloads map back to the catalog directly.
type Tier struct {
	ID          string // provider's price ID for paid tiers (e.g. pri_starter_monthly)
	Name        string
	Description string
	Price       int64  // whole currency units, 0 means free
	Currency    string // ISO 4217 currency code
	Recurring   bool   // billed on a recurring schedule by the provider
	Public      bool   // available for self-service selection
}

// IsFree reports whether the tier costs nothing.
func (t Tier) IsFree() bool {
	return t.Price == 0
}
