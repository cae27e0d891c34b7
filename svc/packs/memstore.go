package packs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packwise/packwise/pkg/ledger"
	"github.com/packwise/packwise/pkg/transition"
)

// MemStore is an in-memory transition.Store with the same semantics as the
// Postgres implementation, including the one-active-row-per-user invariant.
// Intended for tests and local development without a database.
type MemStore struct {
	mu       sync.Mutex
	subs     []*transition.Subscription
	pendings map[string]*transition.PendingCheckout
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{pendings: make(map[string]*transition.PendingCheckout)}
}

func (s *MemStore) GetActive(ctx context.Context, userID uuid.UUID) (*transition.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		if sub.UserID == userID && sub.Status == transition.StatusActive {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, transition.ErrNoActiveSubscription
}

func (s *MemStore) Switch(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchLocked(params), nil
}

func (s *MemStore) SwitchIdempotent(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.CheckoutSessionID != "" {
		for _, sub := range s.subs {
			if sub.CheckoutSessionID == params.CheckoutSessionID {
				copied := *sub
				return &copied, false, nil
			}
		}
	}

	sub := s.switchLocked(params)
	return sub, true, nil
}

func (s *MemStore) switchLocked(params transition.SwitchParams) *transition.Subscription {
	now := time.Now().UTC()
	for _, sub := range s.subs {
		if sub.UserID == params.UserID && sub.Status == transition.StatusActive {
			sub.Status = transition.StatusCancelled
			sub.UpdatedAt = now
		}
	}

	sub := &transition.Subscription{
		ID:                uuid.New(),
		UserID:            params.UserID,
		TierID:            params.TargetTierID,
		Status:            transition.StatusActive,
		CheckoutSessionID: params.CheckoutSessionID,
		ProviderSubID:     params.ProviderSubID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.subs = append(s.subs, sub)

	copied := *sub
	return &copied
}

func (s *MemStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*transition.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.subs) - 1; i >= 0; i-- {
		if s.subs[i].ProviderSubID == providerSubID {
			copied := *s.subs[i]
			return &copied, nil
		}
	}
	return nil, transition.ErrSubscriptionNotFound
}

func (s *MemStore) UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, from, to transition.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, sub := range s.subs {
		if sub.ProviderSubID != providerSubID {
			continue
		}
		found = true
		if sub.Status == from {
			sub.Status = to
			sub.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	if !found {
		return false, transition.ErrSubscriptionNotFound
	}
	return false, nil
}

func (s *MemStore) CreatePendingCheckout(ctx context.Context, pending transition.PendingCheckout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendings[pending.SessionID]; exists {
		return nil
	}
	copied := pending
	s.pendings[pending.SessionID] = &copied
	return nil
}

func (s *MemStore) CompletePendingCheckout(ctx context.Context, sessionID string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.pendings[sessionID]; ok && pending.CompletedAt == nil {
		pending.CompletedAt = &completedAt
	}
	return nil
}

// PendingCheckout returns a copy of the pending checkout for a session.
// Test helper; returns nil when the session is unknown.
func (s *MemStore) PendingCheckout(sessionID string) *transition.PendingCheckout {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pendings[sessionID]
	if !ok {
		return nil
	}
	copied := *pending
	return &copied
}

// Subscriptions returns a snapshot of all rows. Test helper.
func (s *MemStore) Subscriptions() []transition.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]transition.Subscription, len(s.subs))
	for i, sub := range s.subs {
		out[i] = *sub
	}
	return out
}

var _ transition.Store = (*MemStore)(nil)

// MemLedger is an in-memory ledger.Storage deduplicating on ExternalRef.
type MemLedger struct {
	mu      sync.Mutex
	entries []ledger.Entry
	refs    map[string]struct{}
}

// NewMemLedger creates an empty in-memory ledger storage.
func NewMemLedger() *MemLedger {
	return &MemLedger{refs: make(map[string]struct{})}
}

func (l *MemLedger) Store(ctx context.Context, entry ledger.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.refs[entry.ExternalRef]; dup {
		return nil
	}
	l.refs[entry.ExternalRef] = struct{}{}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MemLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]ledger.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ledger.Entry
	for _, e := range l.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns a snapshot of all recorded entries. Test helper.
func (l *MemLedger) Entries() []ledger.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ledger.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

var _ ledger.Storage = (*MemLedger)(nil)
