package transition

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a subscription row.
// Rows are never deleted; they only move between statuses, so the full
// assignment history of a user stays queryable.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled" // terminal for the row
	StatusSuspended Status = "suspended" // recurring payment failed, recoverable
)

// Subscription is one tier assignment of a user. At most one row per user
// may be active at any time; the store layer enforces this with a partial
// unique index rather than application-level locking.
type Subscription struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	TierID            string
	Status            Status
	CheckoutSessionID string // provider checkout session that created this row, if paid
	ProviderSubID     string // provider's recurring subscription ID, if recurring
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive reports whether this row is the user's current assignment.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsSuspended reports whether the row is parked on a failed recurring payment.
func (s *Subscription) IsSuspended() bool {
	return s.Status == StatusSuspended
}
