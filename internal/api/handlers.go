/**
 * @description
 * This file contains the HTTP handlers for the booking service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application services, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @notes
 * - Price mismatch and unknown-item failures map to the same generic 422
 *   response. A probing client must not learn which check it tripped, nor the
 *   expected amount.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/app"
	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// BookingHandlers holds the application services that handlers use.
type BookingHandlers struct {
	orchestrator *app.PaymentIntentOrchestrator
	approval     *app.ApprovalWorkflow
	lifecycle    *app.BookingLifecycle
	bookings     store.BookingStore

	limiter        *app.RedisCheckoutRateLimiter
	checkoutLimit  int
	checkoutWindow time.Duration
}

// NewBookingHandlers creates a new instance of BookingHandlers. The limiter
// may be nil; rate limiting is then disabled.
func NewBookingHandlers(
	orchestrator *app.PaymentIntentOrchestrator,
	approval *app.ApprovalWorkflow,
	lifecycle *app.BookingLifecycle,
	bookings store.BookingStore,
	limiter *app.RedisCheckoutRateLimiter,
	checkoutLimit int,
	checkoutWindow time.Duration,
) *BookingHandlers {
	return &BookingHandlers{
		orchestrator:   orchestrator,
		approval:       approval,
		lifecycle:      lifecycle,
		bookings:       bookings,
		limiter:        limiter,
		checkoutLimit:  checkoutLimit,
		checkoutWindow: checkoutWindow,
	}
}

// decisionRequest is the admin approve/reject payload.
type decisionRequest struct {
	Action     string  `json:"action"`
	Reason     string  `json:"reason,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

// CreatePaymentIntentHandler handles checkout: price verification, guest
// provisioning, booking creation, and gateway intent creation.
func (h *BookingHandlers) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	if retryAfter, limited := h.consumeCheckoutLimit(r); limited {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many checkout attempts. Please try again later.")
		return
	}

	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=create_payment_intent outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.orchestrator.Initiate(r.Context(), req)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	log.Printf("level=info component=api endpoint=create_payment_intent outcome=accepted booking_id=%s amount=%d new_user=%t",
		result.BookingID, result.AmountCharged, result.IsNewUser)
	h.writeJSON(w, http.StatusCreated, result)
}

func (h *BookingHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrPriceMismatch), errors.Is(err, store.ErrItemNotFound):
		// Deliberately indistinguishable to the caller.
		h.writeError(w, http.StatusUnprocessableEntity, "Unable to process booking. Please refresh and try again.")
	case errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrPaymentMethodNotAllowed):
		h.writeError(w, http.StatusBadRequest, "Payment method not available for this product")
	case errors.Is(err, app.ErrGatewayTimeout):
		h.writeError(w, http.StatusServiceUnavailable, "Payment provider did not respond. Your booking is saved; please retry payment.")
	case errors.Is(err, app.ErrGatewayRejected):
		h.writeError(w, http.StatusBadGateway, "Payment provider rejected the request")
	default:
		log.Printf("level=error component=api endpoint=create_payment_intent msg=\"checkout failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *BookingHandlers) consumeCheckoutLimit(r *http.Request) (retryAfter int, limited bool) {
	if h.limiter == nil || h.checkoutLimit <= 0 {
		return 0, false
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "checkout", clientIP(r), h.checkoutLimit, h.checkoutWindow)
	if err != nil {
		// Redis being down must not block checkout.
		log.Printf("level=warn component=api endpoint=create_payment_intent msg=\"rate limiter unavailable\" err=%v", err)
		return 0, false
	}
	return retryAfter, count > h.checkoutLimit
}

// GetBookingHandler returns a booking by id.
func (h *BookingHandlers) GetBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, store.ErrBookingNotFound) {
			h.writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_booking msg=\"lookup failed\" booking_id=%s err=%v", bookingID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, booking)
}

// RetryPaymentIntentHandler creates a fresh gateway intent for a booking left
// pending without one after an ambiguous gateway outcome.
func (h *BookingHandlers) RetryPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	result, err := h.orchestrator.RetryIntent(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "Booking is not awaiting payment setup")
		case errors.Is(err, app.ErrGatewayTimeout):
			h.writeError(w, http.StatusServiceUnavailable, "Payment provider did not respond. Please retry.")
		default:
			log.Printf("level=error component=api endpoint=retry_payment_intent msg=\"retry failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ListPendingApprovalsHandler lists bookings awaiting an admin decision.
func (h *BookingHandlers) ListPendingApprovalsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.approval.PendingApprovals(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=list_pending_approvals msg=\"query failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings, "count": len(bookings)})
}

// ListBookingsHandler lists bookings for the admin dashboard.
func (h *BookingHandlers) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filters := domain.BookingFilters{
		Status:      q.Get("status"),
		ProductType: q.Get("product_type"),
		BookerEmail: q.Get("booker_email"),
		Limit:       limit,
		Offset:      offset,
	}

	bookings, err := h.approval.ListBookings(r.Context(), filters)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_bookings msg=\"query failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings, "count": len(bookings)})
}

// DecideBookingHandler applies an admin approve/reject decision.
func (h *BookingHandlers) DecideBookingHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := GetAdminID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get admin ID from context")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var booking *domain.Booking
	var err error
	switch req.Action {
	case "approve":
		booking, err = h.approval.Approve(r.Context(), bookingID, adminID, req.AdminNotes)
	case "reject":
		booking, err = h.approval.Reject(r.Context(), bookingID, adminID, req.Reason)
	default:
		h.writeError(w, http.StatusBadRequest, "Action must be 'approve' or 'reject'")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, store.ErrAlreadyDecided):
			h.writeError(w, http.StatusConflict, "Booking has already been decided")
		case errors.Is(err, app.ErrBookingUnpaid):
			h.writeError(w, http.StatusConflict, "Booking payment has not completed")
		case errors.Is(err, app.ErrReasonRequired):
			h.writeError(w, http.StatusBadRequest, "Rejection requires a reason")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "Booking is not awaiting approval")
		default:
			log.Printf("level=error component=api endpoint=decide_booking msg=\"decision failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, booking)
}

// CancelBookingHandler cancels a non-terminal booking.
func (h *BookingHandlers) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.lifecycle.Cancel(r.Context(), bookingID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "Booking cannot be cancelled in its current state")
		default:
			log.Printf("level=error component=api endpoint=cancel_booking msg=\"cancel failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, booking)
}

// CompleteBookingHandler marks a confirmed booking completed post-trip.
func (h *BookingHandlers) CompleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.lifecycle.MarkCompleted(r.Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBookingNotFound):
			h.writeError(w, http.StatusNotFound, "Booking not found")
		case errors.Is(err, app.ErrInvalidTransition):
			h.writeError(w, http.StatusConflict, "Only confirmed bookings can be completed")
		default:
			log.Printf("level=error component=api endpoint=complete_booking msg=\"complete failed\" booking_id=%s err=%v", bookingID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandlers) parseBookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "bookingID")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "Booking ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid booking ID format")
		return uuid.Nil, false
	}
	return id, true
}

// writeJSON is a helper for writing JSON responses.
func (h *BookingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *BookingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
