package packs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/packwise/packwise/pkg/email"
	"github.com/packwise/packwise/pkg/transition"
	"github.com/packwise/packwise/pkg/webhook"
)

// EmailResolver looks up a user's billing email. User accounts live outside
// this service, so the lookup is injected by the host application.
type EmailResolver func(ctx context.Context, userID uuid.UUID) (string, error)

// ChangeNotifier fans a finalized pack change out to a receipt email and a
// signed webhook for downstream consumers. Both legs are independent and
// best-effort; the confirmer logs failures and acknowledges regardless.
type ChangeNotifier struct {
	sender        email.EmailSender
	resolveEmail  EmailResolver
	webhookSender *webhook.Sender
	webhookURL    string
	webhookSecret string
	log           *slog.Logger
}

// NotifierOption configures a ChangeNotifier.
type NotifierOption func(*ChangeNotifier)

// WithReceiptEmail enables receipt emails for confirmed payments.
func WithReceiptEmail(sender email.EmailSender, resolve EmailResolver) NotifierOption {
	return func(n *ChangeNotifier) {
		if sender != nil && resolve != nil {
			n.sender = sender
			n.resolveEmail = resolve
		}
	}
}

// WithEventWebhook enables signed pack.changed webhooks to the given URL.
func WithEventWebhook(url, secret string) NotifierOption {
	return func(n *ChangeNotifier) {
		if url != "" {
			n.webhookSender = webhook.NewSender()
			n.webhookURL = url
			n.webhookSecret = secret
		}
	}
}

// WithNotifierLogger sets the structured logger. Defaults to slog.Default.
func WithNotifierLogger(log *slog.Logger) NotifierOption {
	return func(n *ChangeNotifier) {
		if log != nil {
			n.log = log
		}
	}
}

// NewChangeNotifier creates a notifier. With no options it is a no-op.
func NewChangeNotifier(opts ...NotifierOption) *ChangeNotifier {
	n := &ChangeNotifier{log: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type packChangedEvent struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	TierID      string `json:"tier_id"`
	PriorTierID string `json:"prior_tier_id,omitempty"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	ExternalRef string `json:"external_ref"`
}

// PackChanged implements transition.Notifier.
func (n *ChangeNotifier) PackChanged(ctx context.Context, change transition.ChangeNotification) error {
	var errs []error

	if n.sender != nil {
		if err := n.sendReceipt(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("receipt email: %w", err))
		}
	}

	if n.webhookSender != nil {
		event := packChangedEvent{
			Type:        "pack.changed",
			UserID:      change.UserID.String(),
			TierID:      change.TierID,
			PriorTierID: change.PriorTierID,
			Amount:      change.Amount,
			Currency:    change.Currency,
			ExternalRef: change.ExternalRef,
		}
		opts := []webhook.SendOption{webhook.WithMaxRetries(3)}
		if n.webhookSecret != "" {
			opts = append(opts, webhook.WithSignature(n.webhookSecret))
		}
		if err := n.webhookSender.Send(ctx, n.webhookURL, event, opts...); err != nil {
			errs = append(errs, fmt.Errorf("event webhook: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (n *ChangeNotifier) sendReceipt(ctx context.Context, change transition.ChangeNotification) error {
	addr, err := n.resolveEmail(ctx, change.UserID)
	if err != nil {
		return fmt.Errorf("resolve email: %w", err)
	}

	body := fmt.Sprintf(
		"<p>Your subscription pack is now <strong>%s</strong>.</p><p>Charged: %d %s (ref %s).</p>",
		change.TierName, change.Amount, change.Currency, change.ExternalRef,
	)

	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  fmt.Sprintf("Your %s pack is active", change.TierName),
		BodyHTML: body,
		Tag:      "pack-receipt",
	})
}

var _ transition.Notifier = (*ChangeNotifier)(nil)
