package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Catalog is a read-only view over the configured tiers.
// Tiers are loaded once at construction and never mutated afterwards,
// so lookups are safe for concurrent use without locking.
type Catalog struct {
	tiers map[string]Tier
}

// New loads tiers from the source and validates them.
func New(ctx context.Context, src TierSource) (*Catalog, error) {
	if src == nil {
		panic("catalog: TierSource is required")
	}

	tiers, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	if len(tiers) == 0 {
		return nil, ErrNoTiersConfigured
	}

	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	return &Catalog{tiers: tiers}, nil
}

// Get resolves a tier by ID. Returns ErrTierNotFound for unknown IDs.
func (c *Catalog) Get(id string) (Tier, error) {
	tier, ok := c.tiers[id]
	if !ok {
		return Tier{}, ErrTierNotFound
	}
	return tier, nil
}

// List returns all public tiers ordered by price ascending, then by ID for
// a stable order between equally priced tiers.
func (c *Catalog) List() []Tier {
	tiers := make([]Tier, 0, len(c.tiers))
	for _, tier := range c.tiers {
		if tier.Public {
			tiers = append(tiers, tier)
		}
	}
	sort.Slice(tiers, func(i, j int) bool {
		if tiers[i].Price != tiers[j].Price {
			return tiers[i].Price < tiers[j].Price
		}
		return tiers[i].ID < tiers[j].ID
	})
	return tiers
}

// validateTiers ensures tier configurations are internally consistent.
// Catches configuration mistakes at startup instead of at checkout time.
func validateTiers(tiers map[string]Tier) error {
	for id, tier := range tiers {
		if tier.ID != id {
			return errors.Join(ErrInvalidTierConfig,
				fmt.Errorf("tier ID mismatch: map key %s != tier.ID %s", id, tier.ID))
		}
		if tier.Price < 0 {
			return errors.Join(ErrInvalidTierConfig, ErrNegativeTierPrice,
				fmt.Errorf("tier %s has price %d", id, tier.Price))
		}
		if tier.Price > 0 && tier.Currency == "" {
			return errors.Join(ErrInvalidTierConfig, ErrMissingTierCurrency,
				fmt.Errorf("tier %s has no currency", id))
		}
		if tier.Price == 0 && tier.Recurring {
			return errors.Join(ErrInvalidTierConfig, ErrFreeTierRecurrence,
				fmt.Errorf("tier %s is free but marked recurring", id))
		}
	}
	return nil
}
