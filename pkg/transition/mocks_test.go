package transition_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/packwise/packwise/pkg/billing"
	"github.com/packwise/packwise/pkg/ledger"
	"github.com/packwise/packwise/pkg/transition"
)

// mockProvider is a mock implementation of billing.Provider.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutSession), args.Error(1)
}

func (m *mockProvider) CancelRecurring(ctx context.Context, providerSubID string) error {
	args := m.Called(ctx, providerSubID)
	return args.Error(0)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

// mockStore is a mock implementation of transition.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetActive(ctx context.Context, userID uuid.UUID) (*transition.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transition.Subscription), args.Error(1)
}

func (m *mockStore) Switch(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transition.Subscription), args.Error(1)
}

func (m *mockStore) SwitchIdempotent(ctx context.Context, params transition.SwitchParams) (*transition.Subscription, bool, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*transition.Subscription), args.Bool(1), args.Error(2)
}

func (m *mockStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*transition.Subscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transition.Subscription), args.Error(1)
}

func (m *mockStore) UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, from, to transition.Status) (bool, error) {
	args := m.Called(ctx, providerSubID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CreatePendingCheckout(ctx context.Context, pending transition.PendingCheckout) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *mockStore) CompletePendingCheckout(ctx context.Context, sessionID string, completedAt time.Time) error {
	args := m.Called(ctx, sessionID, completedAt)
	return args.Error(0)
}

// mockRecorder is a mock implementation of ledger.Recorder.
type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, entry ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// mockGuard is a mock implementation of transition.ReplayGuard.
type mockGuard struct {
	mock.Mock
}

func (m *mockGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuard) MarkSeen(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// mockNotifier is a mock implementation of transition.Notifier.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PackChanged(ctx context.Context, n transition.ChangeNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
