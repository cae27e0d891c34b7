package billing

import "errors"

var (
	ErrMissingAPIKey        = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid billing provider environment")

	ErrInvalidSignature      = errors.New("webhook signature verification failed")
	ErrMalformedPayload      = errors.New("malformed webhook payload")
	ErrProviderUnavailable   = errors.New("billing provider request failed")
	ErrNoCheckoutURL         = errors.New("no checkout URL returned from provider")
	ErrMissingTierID         = errors.New("tier ID is required")
	ErrMissingCorrelationRef = errors.New("correlation token is required")
)
