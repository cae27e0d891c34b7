package packs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/packwise/packwise/pkg/ledger"
)

// PGLedger implements ledger.Storage on a pgx connection pool. The unique
// index on external_ref plus ON CONFLICT DO NOTHING gives the insert-only,
// replay-safe semantics the ledger contract requires.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger creates a Postgres-backed ledger storage.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	if pool == nil {
		panic("packs: pgx pool is required")
	}
	return &PGLedger{pool: pool}
}

func (l *PGLedger) Store(ctx context.Context, entry ledger.Entry) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO ledger_entries (id, user_id, tier_id, amount, currency, external_ref, provider, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (external_ref) DO NOTHING`,
		entry.ID, entry.UserID, entry.TierID, entry.Amount, entry.Currency, entry.ExternalRef, entry.Provider, entry.CreatedAt,
	)
	return err
}

func (l *PGLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]ledger.Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, user_id, tier_id, amount, currency, external_ref, provider, created_at
		 FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TierID, &e.Amount, &e.Currency, &e.ExternalRef, &e.Provider, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ ledger.Storage = (*PGLedger)(nil)
