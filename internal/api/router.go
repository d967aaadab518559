/**
 * @description
 * This file sets up the HTTP router for the booking service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware. The checkout and webhook endpoints are public; the
 * admin surface is gated by the admin JWT middleware.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BookingRoutes creates and returns a new router for the booking service.
func BookingRoutes(h *BookingHandlers, adminJWTSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public checkout and booking endpoints.
	r.Post("/checkout/payment-intent", h.CreatePaymentIntentHandler)
	r.Post("/bookings/{bookingID}/retry-payment", h.RetryPaymentIntentHandler)
	r.Get("/bookings/{bookingID}", h.GetBookingHandler)

	// Payment gateway webhook.
	r.Post("/webhooks/payment", h.PaymentWebhookHandler)

	// Admin surface, behind JWT auth.
	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminJWTSecret))

		r.Get("/admin/bookings", h.ListBookingsHandler)
		r.Get("/admin/bookings/pending", h.ListPendingApprovalsHandler)
		r.Patch("/admin/bookings/{bookingID}", h.DecideBookingHandler)
		r.Post("/admin/bookings/{bookingID}/cancel", h.CancelBookingHandler)
		r.Post("/admin/bookings/{bookingID}/complete", h.CompleteBookingHandler)
	})

	return r
}
