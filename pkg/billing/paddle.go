package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	SuccessURL    string `env:"PADDLE_SUCCESS_URL"` // where the hosted checkout redirects after payment
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
// The correlation token is carried in the transaction's custom data and comes
// back verbatim in transaction.completed webhooks.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.TierID == "" {
		return nil, ErrMissingTierID
	}
	if !req.Token.Valid() {
		return nil, ErrMissingCorrelationRef
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.TierID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData(req.Token.customData()),
	}

	if req.Email != "" {
		transactionReq.CustomData["email"] = req.Email
	}
	if p.config.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(p.config.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutSession{
		ID:          transaction.ID,
		RedirectURL: *transaction.Checkout.URL,
		ExpiresAt:   time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24 hours
	}, nil
}

// CancelRecurring cancels a recurring subscription on the Paddle side.
// Cancellation takes effect immediately since the local store has already
// moved the user to the free tier.
func (p *PaddleProvider) CancelRecurring(ctx context.Context, providerSubID string) error {
	if providerSubID == "" {
		return nil
	}

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerSubID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromImmediately),
	})
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	return nil
}

// ParseWebhook verifies the signature over the raw payload and normalizes the
// event. The raw body must be passed exactly as received; re-serializing it
// breaks signature verification.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var paddleEvent struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}

	event := &Event{
		ID:            paddleEvent.EventID,
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
	}
	if ts, err := time.Parse(time.RFC3339, paddleEvent.OccurredAt); err == nil {
		event.OccurredAt = ts
	}

	data := paddleEvent.Data

	if id, ok := data["id"].(string); ok {
		if strings.HasPrefix(paddleEvent.EventType, "subscription.") {
			event.ProviderSubID = id
		} else {
			event.SessionID = id
		}
	}
	if subID, ok := data["subscription_id"].(string); ok && subID != "" {
		event.ProviderSubID = subID
	}

	if customData, ok := data["custom_data"].(map[string]any); ok {
		event.Token = tokenFromCustomData(customData)
	}

	// Paddle reports transaction totals as strings in the currency's minor units.
	if details, ok := data["details"].(map[string]any); ok {
		if totals, ok := details["totals"].(map[string]any); ok {
			if total, ok := totals["total"].(string); ok {
				if amount, err := strconv.ParseInt(total, 10, 64); err == nil {
					event.Amount = amount
				}
			}
		}
	}
	if currency, ok := data["currency_code"].(string); ok {
		event.Currency = currency
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event names to normalized event types.
// Unmapped events are ignored rather than failed so new provider events
// never break webhook acknowledgment.
func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "transaction.payment_failed", "subscription.past_due":
		return EventPaymentFailed
	case "subscription.resumed", "subscription.activated":
		return EventPaymentRecovered
	case "subscription.canceled":
		return EventSubscriptionDeleted
	default:
		return EventIgnored
	}
}
