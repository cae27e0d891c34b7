package packs

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/packwise/packwise/pkg/billing"
	"github.com/packwise/packwise/pkg/catalog"
	"github.com/packwise/packwise/pkg/transition"
)

// signatureHeader is the provider's webhook signature header.
const signatureHeader = "Paddle-Signature"

// maxWebhookBody caps webhook payload size; provider events are small.
const maxWebhookBody = 1 << 20

type changeRequest struct {
	TargetTierID string `json:"target_tier_id"`
}

type changeResponse struct {
	Status       string `json:"status"`
	ActiveTierID string `json:"active_tier_id,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

type tierResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency,omitempty"`
	Recurring bool   `json:"recurring"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router mounts the pack transition endpoints.
//
//	POST /packs/change    — request a tier transition
//	GET  /packs/current   — derived active tier of the caller
//	GET  /packs           — public tier listing
//	POST /webhooks/billing — provider payment confirmations
func Router(svc *transition.Service, confirmer *transition.Confirmer, cat *catalog.Catalog, log *slog.Logger) chi.Router {
	if log == nil {
		log = slog.Default()
	}
	h := &handlers{svc: svc, confirmer: confirmer, catalog: cat, log: log}

	r := chi.NewRouter()
	r.Route("/packs", func(r chi.Router) {
		r.Get("/", h.listTiers)
		r.Get("/current", h.currentTier)
		r.Post("/change", h.change)
	})
	r.Post("/webhooks/billing", h.webhook)
	return r
}

type handlers struct {
	svc       *transition.Service
	confirmer *transition.Confirmer
	catalog   *catalog.Catalog
	log       *slog.Logger
}

func (h *handlers) listTiers(w http.ResponseWriter, r *http.Request) {
	tiers := h.catalog.List()
	out := make([]tierResponse, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, tierResponse{
			ID:        tier.ID,
			Name:      tier.Name,
			Price:     tier.Price,
			Currency:  tier.Currency,
			Recurring: tier.Recurring,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) currentTier(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tier, err := h.svc.CurrentTier(r.Context(), userID)
	if err != nil {
		if errors.Is(err, transition.ErrNoActiveSubscription) {
			writeError(w, http.StatusNotFound, "no active pack")
			return
		}
		h.writeServiceError(w, r, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, tierResponse{
		ID:        tier.ID,
		Name:      tier.Name,
		Price:     tier.Price,
		Currency:  tier.Currency,
		Recurring: tier.Recurring,
	})
}

func (h *handlers) change(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TargetTierID == "" {
		writeError(w, http.StatusBadRequest, "target_tier_id is required")
		return
	}

	result, err := h.svc.Change(r.Context(), userID, req.TargetTierID)
	if err != nil {
		h.writeServiceError(w, r, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, changeResponse{
		Status:       string(result.Status),
		ActiveTierID: result.ActiveTierID,
		RedirectURL:  result.RedirectURL,
	})
}

// webhook receives provider events. The raw body is passed to verification
// untouched; re-serializing it would invalidate the signature.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.confirmer.Handle(r.Context(), payload, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, billing.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, transition.ErrMalformedEvent), errors.Is(err, transition.ErrUnprocessableEvent):
		// Already logged by the confirmer. Acknowledge so the provider does
		// not redeliver an event that can never be processed.
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, transition.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		h.log.ErrorContext(r.Context(), "webhook handling failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeServiceError maps domain errors onto HTTP statuses without exposing
// internal detail to the caller.
func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, transition.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, catalog.ErrTierNotFound):
		writeError(w, http.StatusNotFound, "tier not found")
	case errors.Is(err, transition.ErrStoreConflict):
		writeError(w, http.StatusConflict, "concurrent transition, retry")
	case errors.Is(err, billing.ErrProviderUnavailable), errors.Is(err, billing.ErrNoCheckoutURL):
		h.log.ErrorContext(r.Context(), "payment provider error", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, transition.ErrStoreUnavailable):
		h.log.ErrorContext(r.Context(), "store unavailable", "user_id", userID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		h.log.ErrorContext(r.Context(), "transition request failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
