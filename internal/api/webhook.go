/**
 * @description
 * This file contains the HTTP handler for inbound payment gateway webhooks.
 * The gateway retries deliveries until it receives a 2xx, so the handler
 * acknowledges everything it cannot act on (unknown event types, unknown
 * intents) and reserves error statuses for genuinely retryable or conflicting
 * situations.
 *
 * @notes
 * - 400 only for bodies that cannot be parsed at all; a retry would never
 *   succeed but the gateway gives up faster on 4xx.
 * - 409 for events whose intent id and metadata booking id point at different
 *   bookings. These need human attention, not retries.
 */

package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/IBookTours/IBookTours-sub001/internal/app"
	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// PaymentWebhookHandler processes payment gateway event deliveries.
func (h *BookingHandlers) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	event, err := domain.ParsePaymentEvent(body)
	if err != nil {
		log.Printf("level=warn component=api endpoint=payment_webhook outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Malformed event payload")
		return
	}

	intent := event.Data.Object

	switch event.Type {
	case domain.EventPaymentSucceeded:
		status, err := h.approval.OnPaymentSucceeded(r.Context(), intent.ID, intent.Metadata)
		if err != nil {
			h.writeWebhookError(w, intent.ID, err)
			return
		}
		log.Printf("level=info component=api endpoint=payment_webhook event=%s intent_id=%s status=%s", event.Type, intent.ID, status)
		h.writeJSON(w, http.StatusOK, map[string]string{"received": "true", "status": string(status)})

	case domain.EventPaymentFailed:
		if err := h.approval.OnPaymentFailed(r.Context(), intent.ID, intent.Metadata); err != nil {
			h.writeWebhookError(w, intent.ID, err)
			return
		}
		log.Printf("level=info component=api endpoint=payment_webhook event=%s intent_id=%s", event.Type, intent.ID)
		h.writeJSON(w, http.StatusOK, map[string]string{"received": "true"})

	default:
		// Not an event this service acts on; acknowledge so the gateway
		// stops redelivering.
		h.writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}

func (h *BookingHandlers) writeWebhookError(w http.ResponseWriter, intentID string, err error) {
	switch {
	case errors.Is(err, store.ErrBookingNotFound):
		// An intent this service never created (or a stale environment's
		// event). Acknowledge; retrying will not make the booking appear.
		log.Printf("level=warn component=api endpoint=payment_webhook outcome=ack reason=unknown_intent intent_id=%s", intentID)
		h.writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	case errors.Is(err, app.ErrEventConflict):
		log.Printf("level=error component=api endpoint=payment_webhook outcome=conflict intent_id=%s", intentID)
		h.writeError(w, http.StatusConflict, "Event references conflicting bookings")
	default:
		log.Printf("level=error component=api endpoint=payment_webhook msg=\"event processing failed\" intent_id=%s err=%v", intentID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
