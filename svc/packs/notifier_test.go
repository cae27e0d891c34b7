package packs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/packwise/packwise/pkg/email"
	"github.com/packwise/packwise/pkg/transition"
	"github.com/packwise/packwise/svc/packs"
)

// mockEmailSender is a mock implementation of email.EmailSender.
type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func testNotification(userID uuid.UUID) transition.ChangeNotification {
	return transition.ChangeNotification{
		UserID:      userID,
		TierID:      "pri_pro",
		TierName:    "Pro",
		PriorTierID: "pri_starter",
		Amount:      30,
		Currency:    "USD",
		ExternalRef: "txn_1",
	}
}

func TestChangeNotifier_NoOp(t *testing.T) {
	t.Parallel()

	n := packs.NewChangeNotifier()
	err := n.PackChanged(context.Background(), testNotification(uuid.New()))
	assert.NoError(t, err)
}

func TestChangeNotifier_EventWebhook(t *testing.T) {
	t.Parallel()

	t.Run("delivers a signed pack.changed event", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()

		var (
			gotBody      []byte
			gotSignature string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			gotSignature = r.Header.Get("X-Webhook-Signature")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		n := packs.NewChangeNotifier(packs.WithEventWebhook(srv.URL, "whsec_test"))
		err := n.PackChanged(context.Background(), testNotification(userID))
		require.NoError(t, err)

		assert.NotEmpty(t, gotSignature)

		var event map[string]any
		require.NoError(t, json.Unmarshal(gotBody, &event))
		assert.Equal(t, "pack.changed", event["type"])
		assert.Equal(t, userID.String(), event["user_id"])
		assert.Equal(t, "pri_pro", event["tier_id"])
		assert.Equal(t, "pri_starter", event["prior_tier_id"])
		assert.Equal(t, float64(30), event["amount"])
		assert.Equal(t, "USD", event["currency"])
		assert.Equal(t, "txn_1", event["external_ref"])
	})

	t.Run("permanent receiver failure surfaces as an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		n := packs.NewChangeNotifier(packs.WithEventWebhook(srv.URL, ""))
		err := n.PackChanged(context.Background(), testNotification(uuid.New()))
		assert.Error(t, err)
	})
}

func TestChangeNotifier_ReceiptEmail(t *testing.T) {
	t.Parallel()

	t.Run("sends the receipt to the resolved address", func(t *testing.T) {
		t.Parallel()

		userID := uuid.New()
		sender := &mockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.SendTo == "user@example.com" &&
				p.Tag == "pack-receipt" &&
				p.Subject == "Your Pro pack is active"
		})).Return(nil).Once()

		resolve := func(ctx context.Context, id uuid.UUID) (string, error) {
			require.Equal(t, userID, id)
			return "user@example.com", nil
		}

		n := packs.NewChangeNotifier(packs.WithReceiptEmail(sender, resolve))
		err := n.PackChanged(context.Background(), testNotification(userID))

		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("resolver failure surfaces without sending", func(t *testing.T) {
		t.Parallel()

		sender := &mockEmailSender{}
		resolve := func(ctx context.Context, id uuid.UUID) (string, error) {
			return "", errors.New("user directory down")
		}

		n := packs.NewChangeNotifier(packs.WithReceiptEmail(sender, resolve))
		err := n.PackChanged(context.Background(), testNotification(uuid.New()))

		assert.Error(t, err)
		sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("both legs run even when the first fails", func(t *testing.T) {
		t.Parallel()

		var webhookHit bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			webhookHit = true
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		sender := &mockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything).
			Return(errors.New("postmark down")).Once()

		n := packs.NewChangeNotifier(
			packs.WithReceiptEmail(sender, func(ctx context.Context, id uuid.UUID) (string, error) {
				return "user@example.com", nil
			}),
			packs.WithEventWebhook(srv.URL, "whsec_test"),
		)
		err := n.PackChanged(context.Background(), testNotification(uuid.New()))

		assert.Error(t, err)
		assert.True(t, webhookHit)
	})
}
