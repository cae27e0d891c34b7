package packs_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packwise/packwise/pkg/ledger"
	"github.com/packwise/packwise/pkg/transition"
	"github.com/packwise/packwise/svc/packs"
)

func TestMemStore_Switch(t *testing.T) {
	t.Parallel()

	t.Run("activates a row for a fresh user", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		userID := uuid.New()

		sub, err := store.Switch(context.Background(), transition.SwitchParams{
			UserID:       userID,
			TargetTierID: "pri_starter",
		})
		require.NoError(t, err)
		assert.Equal(t, transition.StatusActive, sub.Status)
		assert.Equal(t, "pri_starter", sub.TierID)

		active, err := store.GetActive(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, active.ID)
	})

	t.Run("cancels the previous active row", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		userID := uuid.New()
		ctx := context.Background()

		first, err := store.Switch(ctx, transition.SwitchParams{UserID: userID, TargetTierID: "pri_starter"})
		require.NoError(t, err)
		second, err := store.Switch(ctx, transition.SwitchParams{UserID: userID, TargetTierID: "pri_pro"})
		require.NoError(t, err)

		var actives int
		for _, sub := range store.Subscriptions() {
			if sub.UserID == userID && sub.Status == transition.StatusActive {
				actives++
			}
			if sub.ID == first.ID {
				assert.Equal(t, transition.StatusCancelled, sub.Status)
			}
		}
		assert.Equal(t, 1, actives)

		active, err := store.GetActive(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, active.ID)
	})

	t.Run("no active subscription for unknown user", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		_, err := store.GetActive(context.Background(), uuid.New())
		assert.ErrorIs(t, err, transition.ErrNoActiveSubscription)
	})
}

func TestMemStore_SwitchIdempotent(t *testing.T) {
	t.Parallel()

	t.Run("replay of the same session is a no-op", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		userID := uuid.New()
		ctx := context.Background()
		params := transition.SwitchParams{
			UserID:            userID,
			TargetTierID:      "pri_pro",
			CheckoutSessionID: "txn_1",
		}

		first, applied, err := store.SwitchIdempotent(ctx, params)
		require.NoError(t, err)
		assert.True(t, applied)

		second, applied, err := store.SwitchIdempotent(ctx, params)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, first.ID, second.ID)

		assert.Len(t, store.Subscriptions(), 1)
	})

	t.Run("different sessions create separate transitions", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		userID := uuid.New()
		ctx := context.Background()

		_, applied, err := store.SwitchIdempotent(ctx, transition.SwitchParams{
			UserID: userID, TargetTierID: "pri_starter", CheckoutSessionID: "txn_1",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		_, applied, err = store.SwitchIdempotent(ctx, transition.SwitchParams{
			UserID: userID, TargetTierID: "pri_pro", CheckoutSessionID: "txn_2",
		})
		require.NoError(t, err)
		assert.True(t, applied)

		active, err := store.GetActive(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "pri_pro", active.TierID)
	})
}

func TestMemStore_UpdateStatusByProviderSubID(t *testing.T) {
	t.Parallel()

	newStoreWithSub := func(t *testing.T) (*packs.MemStore, uuid.UUID) {
		t.Helper()
		store := packs.NewMemStore()
		userID := uuid.New()
		_, _, err := store.SwitchIdempotent(context.Background(), transition.SwitchParams{
			UserID:            userID,
			TargetTierID:      "pri_pro",
			CheckoutSessionID: "txn_1",
			ProviderSubID:     "psub_1",
		})
		require.NoError(t, err)
		return store, userID
	}

	t.Run("moves matching row between statuses", func(t *testing.T) {
		t.Parallel()

		store, userID := newStoreWithSub(t)
		ctx := context.Background()

		applied, err := store.UpdateStatusByProviderSubID(ctx, "psub_1",
			transition.StatusActive, transition.StatusSuspended)
		require.NoError(t, err)
		assert.True(t, applied)

		_, err = store.GetActive(ctx, userID)
		assert.ErrorIs(t, err, transition.ErrNoActiveSubscription)

		sub, err := store.GetByProviderSubID(ctx, "psub_1")
		require.NoError(t, err)
		assert.True(t, sub.IsSuspended())
	})

	t.Run("wrong current status reports not applied", func(t *testing.T) {
		t.Parallel()

		store, _ := newStoreWithSub(t)
		applied, err := store.UpdateStatusByProviderSubID(context.Background(), "psub_1",
			transition.StatusSuspended, transition.StatusActive)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("unknown provider subscription", func(t *testing.T) {
		t.Parallel()

		store := packs.NewMemStore()
		_, err := store.UpdateStatusByProviderSubID(context.Background(), "psub_ghost",
			transition.StatusActive, transition.StatusCancelled)
		assert.ErrorIs(t, err, transition.ErrSubscriptionNotFound)
	})
}

func TestMemStore_PendingCheckouts(t *testing.T) {
	t.Parallel()

	store := packs.NewMemStore()
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, store.CreatePendingCheckout(ctx, transition.PendingCheckout{
		SessionID:    "txn_1",
		UserID:       userID,
		TargetTierID: "pri_pro",
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
	}))

	pending := store.PendingCheckout("txn_1")
	require.NotNil(t, pending)
	assert.Nil(t, pending.CompletedAt)

	completedAt := now.Add(time.Minute)
	require.NoError(t, store.CompletePendingCheckout(ctx, "txn_1", completedAt))

	pending = store.PendingCheckout("txn_1")
	require.NotNil(t, pending)
	require.NotNil(t, pending.CompletedAt)
	assert.True(t, pending.CompletedAt.Equal(completedAt))

	// Completing twice keeps the first completion time.
	require.NoError(t, store.CompletePendingCheckout(ctx, "txn_1", completedAt.Add(time.Hour)))
	assert.True(t, store.PendingCheckout("txn_1").CompletedAt.Equal(completedAt))

	// Unknown sessions are a no-op.
	require.NoError(t, store.CompletePendingCheckout(ctx, "txn_ghost", completedAt))
	assert.Nil(t, store.PendingCheckout("txn_ghost"))
}

func TestMemLedger_Dedup(t *testing.T) {
	t.Parallel()

	led := packs.NewMemLedger()
	ctx := context.Background()
	userID := uuid.New()

	entry := ledger.Entry{
		ID:          uuid.New(),
		UserID:      userID,
		TierID:      "pri_pro",
		Amount:      30,
		Currency:    "USD",
		ExternalRef: "txn_1",
		Provider:    "paddle",
	}

	require.NoError(t, led.Store(ctx, entry))
	require.NoError(t, led.Store(ctx, entry)) // duplicate ref, silent no-op

	entries, err := led.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	other := entry
	other.ID = uuid.New()
	other.ExternalRef = "txn_2"
	require.NoError(t, led.Store(ctx, other))

	entries, err = led.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = led.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
