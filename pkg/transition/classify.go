package transition

import "github.com/packwise/packwise/pkg/catalog"

// Kind tags the direction of a pack transition.
type Kind string

const (
	KindUpgrade   Kind = "upgrade"           // target costs more, payment confirmed first
	KindDowngrade Kind = "downgrade"         // target costs less but is still paid
	KindSamePrice Kind = "same_price"        // equal price, lateral move
	KindFreefall  Kind = "downgrade_to_free" // target is the free tier
)

// Classification is the result of comparing the current price against a
// target tier. It is computed once per request and trusted downstream;
// handlers never re-derive ad hoc boolean checks from prices.
type Classification struct {
	Kind            Kind
	PriceDelta      int64 // target price minus current price
	RequiresPayment bool  // an external checkout must complete first
	Immediate       bool  // the local store may be mutated within this call
}

// Classify maps (current price, target tier) to a Classification.
// currentPrice is 0 when the user has no active subscription, which is
// equivalent to being on the free tier.
//
// Only upgrades require payment. A cheaper non-free target applies
// immediately: the user already paid more than it costs, so forcing a
// checkout for it would be wrong.
//
// Pure and deterministic; target existence is the caller's concern.
func Classify(currentPrice int64, target catalog.Tier) Classification {
	delta := target.Price - currentPrice

	switch {
	case delta > 0:
		return Classification{
			Kind:            KindUpgrade,
			PriceDelta:      delta,
			RequiresPayment: true,
			Immediate:       false,
		}
	case delta < 0 && target.Price == 0:
		return Classification{
			Kind:       KindFreefall,
			PriceDelta: delta,
			Immediate:  true,
		}
	case delta < 0:
		return Classification{
			Kind:       KindDowngrade,
			PriceDelta: delta,
			Immediate:  true,
		}
	default:
		return Classification{
			Kind:      KindSamePrice,
			Immediate: true,
		}
	}
}
