package catalog

import "errors"

var (
	ErrTierNotFound        = errors.New("catalog tier not found")
	ErrInvalidTierConfig   = errors.New("invalid catalog tier configuration")
	ErrFailedToLoadTiers   = errors.New("failed to load catalog tiers")
	ErrNoTiersConfigured   = errors.New("no catalog tiers configured")
	ErrDuplicateTierID     = errors.New("duplicate catalog tier ID")
	ErrNegativeTierPrice   = errors.New("catalog tier price cannot be negative")
	ErrMissingTierCurrency = errors.New("paid catalog tier requires a currency")
	ErrFreeTierRecurrence  = errors.New("free catalog tier cannot be recurring")
)
