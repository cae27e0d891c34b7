package catalog

import (
	"context"
	"sync"
)

// TierSource defines how tiers are loaded into a Catalog.
type TierSource interface {
	Load(ctx context.Context) (map[string]Tier, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	tiers map[string]Tier
}

// NewInMemSource returns an in-memory TierSource holding a copy of the given tiers.
// Panics if no tiers are provided so a catalog can never start empty.
func NewInMemSource(tiers ...Tier) TierSource {
	if len(tiers) == 0 {
		panic("catalog: at least one tier is required")
	}

	tiersCopy := make(map[string]Tier, len(tiers))
	for _, tier := range tiers {
		tiersCopy[tier.ID] = tier
	}

	return &inMemSource{tiers: tiersCopy}
}

// Load returns a copy of all configured tiers.
// Copying prevents callers from mutating the source's internal state.
func (s *inMemSource) Load(ctx context.Context) (map[string]Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiersCopy := make(map[string]Tier, len(s.tiers))
	for id, tier := range s.tiers {
		tiersCopy[id] = tier
	}
	return tiersCopy, nil
}
