package httpapi

import (
	"errors"
	"io"
	"net/http"

	"beybuilmek.com/internal/audit"
	"beybuilmek.com/internal/auth"
	"beybuilmek.com/internal/obs"
	"beybuilmek.com/internal/order"
	"beybuilmek.com/internal/payment"
)

type checkoutRequest struct {
	OrderID string `json:"order_id"`
}

type checkoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func (a *API) handleCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.OrderID == "" {
		writeError(w, r, http.StatusBadRequest, "order_id is required")
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	sess, err := a.checkout.CreateCheckoutSession(r.Context(), userID, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "order not found")
		case errors.Is(err, payment.ErrNotOwner):
			writeError(w, r, http.StatusForbidden, "order belongs to another account")
		case errors.Is(err, payment.ErrOrderNotPayable):
			writeError(w, r, http.StatusConflict, "order is not awaiting payment")
		case errors.Is(err, order.ErrInvalidAmount):
			writeError(w, r, http.StatusConflict, "order amount is not payable")
		case errors.Is(err, payment.ErrGateway):
			writeError(w, r, http.StatusBadGateway, "payment provider unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "checkout could not be started")
		}
		return
	}

	obs.IncCheckoutSessions()
	_ = audit.LogEvent(r.Context(), "payment.checkout_session.created", map[string]any{
		"order_id":   sess.OrderID,
		"session_id": sess.ID,
		"amount":     sess.Amount,
		"currency":   sess.Currency,
	})
	writeJSON(w, http.StatusCreated, checkoutResponse{
		SessionID:   sess.ID,
		RedirectURL: sess.RedirectURL,
		Amount:      sess.Amount,
		Currency:    sess.Currency,
	})
}

// maxWebhookBody bounds the raw payload read; provider events are small.
const maxWebhookBody = 1 << 20

// handleWebhook is the unauthenticated ingress for provider events. The body
// must be read raw and verified byte-for-byte before any JSON decoding.
func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		obs.ObserveWebhook(obs.WebhookRejected)
		writeError(w, r, http.StatusBadRequest, "unreadable body")
		return
	}

	outcome, err := a.webhooks.Handle(r.Context(), rawBody, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			obs.ObserveWebhook(obs.WebhookRejected)
			_ = audit.LogEvent(r.Context(), "payment.webhook.rejected", map[string]any{
				"reason": "invalid_signature",
			})
			writeError(w, r, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, payment.ErrMalformedEvent):
			obs.ObserveWebhook(obs.WebhookRejected)
			writeError(w, r, http.StatusBadRequest, "malformed event")
		default:
			// Storage failure: tell the provider to retry later.
			writeError(w, r, http.StatusInternalServerError, "event could not be processed")
		}
		return
	}

	switch {
	case outcome.Replay:
		obs.ObserveWebhook(obs.WebhookReplay)
	case outcome.Flagged != "":
		obs.ObserveWebhook(obs.WebhookFlagged)
		_ = audit.LogEvent(r.Context(), "payment.webhook.flagged", map[string]any{
			"event_id": outcome.EventID,
			"type":     outcome.EventType,
			"detail":   outcome.Flagged,
		})
	case outcome.Ignored:
		obs.ObserveWebhook(obs.WebhookIgnored)
	default:
		obs.ObserveWebhook(obs.WebhookOK)
	}

	if outcome.Transitioned {
		_ = audit.LogEvent(r.Context(), "order.paid", map[string]any{
			"order_id": outcome.OrderID,
			"event_id": outcome.EventID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
