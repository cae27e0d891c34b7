package packs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packwise/packwise/pkg/pg"
	"github.com/packwise/packwise/pkg/transition"
)

// PGStore implements transition.Store on a pgx connection pool.
//
// The "one active subscription per user" invariant is enforced by the
// partial unique index subscriptions_one_active_per_user, so a lost-update
// race between the HTTP executor and the webhook confirmer surfaces as a
// duplicate-key error here and is mapped to transition.ErrStoreConflict.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed subscription store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("packs: pgx pool is required")
	}
	return &PGStore{pool: pool}
}

const subscriptionColumns = `id, user_id, tier_id, status, coalesce(checkout_session_id, ''), coalesce(provider_sub_id, ''), created_at, updated_at`

func scanSubscription(row pgx.Row) (*transition.Subscription, error) {
	var sub transition.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.TierID,
		&sub.Status,
		&sub.CheckoutSessionID,
		&sub.ProviderSubID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PGStore) GetActive(ctx context.Context, userID uuid.UUID) (*transition.Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND status = 'active'`,
		userID,
	)

	sub, err := scanSubscription(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, transition.ErrNoActiveSubscription
		}
		return nil, err
	}
	return sub, nil
}

func (s *PGStore) Switch(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, error) {
	var sub *transition.Subscription
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		sub, err = switchInTx(ctx, tx, params)
		return err
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, transition.ErrStoreConflict
		}
		return nil, err
	}
	return sub, nil
}

func (s *PGStore) SwitchIdempotent(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, bool, error) {
	var (
		sub     *transition.Subscription
		applied bool
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Dedup key: a row created from the same checkout session means this
		// event was already applied, replays are no-ops.
		row := tx.QueryRow(ctx,
			`SELECT `+subscriptionColumns+` FROM subscriptions WHERE checkout_session_id = $1`,
			params.CheckoutSessionID,
		)
		existing, err := scanSubscription(row)
		switch {
		case err == nil:
			sub = existing
			return nil
		case !pg.IsNotFoundError(err):
			return err
		}

		sub, err = switchInTx(ctx, tx, params)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, false, transition.ErrStoreConflict
		}
		return nil, false, err
	}
	return sub, applied, nil
}

// switchInTx is the shared cancel-and-activate mutation. Any currently
// active row is cancelled regardless of tier: on the webhook path the
// payment has already cleared, so entitlement follows the money even if the
// user moved tiers while the checkout was open.
func switchInTx(ctx context.Context, tx pgx.Tx, params transition.SwitchParams) (*transition.Subscription, error) {
	if _, err := tx.Exec(ctx,
		`UPDATE subscriptions SET status = 'cancelled', updated_at = now() WHERE user_id = $1 AND status = 'active'`,
		params.UserID,
	); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO subscriptions (id, user_id, tier_id, status, checkout_session_id, provider_sub_id, created_at, updated_at)
		 VALUES ($1, $2, $3, 'active', nullif($4, ''), nullif($5, ''), now(), now())
		 RETURNING `+subscriptionColumns,
		uuid.New(), params.UserID, params.TargetTierID, params.CheckoutSessionID, params.ProviderSubID,
	)
	return scanSubscription(row)
}

func (s *PGStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*transition.Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1 ORDER BY created_at DESC LIMIT 1`,
		providerSubID,
	)

	sub, err := scanSubscription(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, transition.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *PGStore) UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, from, to transition.Status) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $3, updated_at = now() WHERE provider_sub_id = $1 AND status = $2`,
		providerSubID, from, to,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "row exists in another status" from "never heard of it".
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE provider_sub_id = $1)`,
		providerSubID,
	).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, transition.ErrSubscriptionNotFound
	}
	return false, nil
}

func (s *PGStore) CreatePendingCheckout(ctx context.Context, pending transition.PendingCheckout) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_checkouts (session_id, user_id, target_tier_id, prior_tier_id, created_at, expires_at)
		 VALUES ($1, $2, $3, nullif($4, ''), $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		pending.SessionID, pending.UserID, pending.TargetTierID, pending.PriorTierID, pending.CreatedAt, pending.ExpiresAt,
	)
	return err
}

func (s *PGStore) CompletePendingCheckout(ctx context.Context, sessionID string, completedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pending_checkouts SET completed_at = $2 WHERE session_id = $1 AND completed_at IS NULL`,
		sessionID, completedAt,
	)
	return err
}

func (s *PGStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ transition.Store = (*PGStore)(nil)
