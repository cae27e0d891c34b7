package billing

import (
	"github.com/google/uuid"
)

// CorrelationToken is the opaque data attached to a checkout session so the
// confirmation handler can finalize the right transition without re-reading
// mutable state. PriorTierID is empty when the user had no active pack.
type CorrelationToken struct {
	UserID       uuid.UUID
	TargetTierID string
	PriorTierID  string
}

// IsZero reports whether the token carries no reconciliation data.
func (t CorrelationToken) IsZero() bool {
	return t.UserID == uuid.Nil && t.TargetTierID == ""
}

// Valid reports whether the token has the fields required to finalize a
// transition. PriorTierID is intentionally optional.
func (t CorrelationToken) Valid() bool {
	return t.UserID != uuid.Nil && t.TargetTierID != ""
}

const (
	customDataUserID = "user_id"
	customDataTarget = "target_tier_id"
	customDataPrior  = "prior_tier_id"
)

// customData renders the token as the provider's custom-data map.
func (t CorrelationToken) customData() map[string]any {
	data := map[string]any{
		customDataUserID: t.UserID.String(),
		customDataTarget: t.TargetTierID,
	}
	if t.PriorTierID != "" {
		data[customDataPrior] = t.PriorTierID
	}
	return data
}

// tokenFromCustomData reconstructs a token from a webhook payload's
// custom-data map. Malformed or absent fields yield a zero token; the caller
// decides whether that is fatal via Valid.
func tokenFromCustomData(data map[string]any) CorrelationToken {
	var token CorrelationToken

	if raw, ok := data[customDataUserID].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			token.UserID = id
		}
	}
	if target, ok := data[customDataTarget].(string); ok {
		token.TargetTierID = target
	}
	if prior, ok := data[customDataPrior].(string); ok {
		token.PriorTierID = prior
	}

	return token
}
