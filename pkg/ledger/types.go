package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single payment audit record. Entries are insert-only and
// deduplicated on ExternalRef, so replayed webhook deliveries leave exactly
// one trace per provider transaction.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	TierID      string    `json:"tier_id"`
	Amount      int64     `json:"amount"` // as reported by the provider
	Currency    string    `json:"currency"`
	ExternalRef string    `json:"external_ref"` // provider transaction/session ID, unique
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks that the entry can serve reconciliation later.
func (e *Entry) Validate() error {
	if e.ExternalRef == "" {
		return fmt.Errorf("%w: external reference is required", ErrEntryValidation)
	}
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user ID is required", ErrEntryValidation)
	}
	return nil
}
