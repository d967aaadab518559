/**
 * @description
 * This file defines the core domain models for the booking service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (cents), which avoids floating-point inaccuracies with financial data.
 * - A booking carries three independent status axes (booking, payment, approval).
 *   A booking can be payment-succeeded yet approval-pending at the same time, so
 *   the axes are never collapsed into a single field.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the overall lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending          BookingStatus = "pending"
	BookingPendingPayment   BookingStatus = "pending_payment"
	BookingAwaitingApproval BookingStatus = "awaiting_approval"
	BookingConfirmed        BookingStatus = "confirmed"
	BookingCancelled        BookingStatus = "cancelled"
	BookingCompleted        BookingStatus = "completed"
	BookingRefunded         BookingStatus = "refunded"
)

// IsTerminal reports whether a booking status accepts no further transitions.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCancelled, BookingCompleted, BookingRefunded:
		return true
	}
	return false
}

// PaymentStatus tracks the funding state of a booking, independent of approval.
type PaymentStatus string

const (
	PaymentNotRequired PaymentStatus = "not_required"
	PaymentPending     PaymentStatus = "pending"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentSucceeded   PaymentStatus = "succeeded"
	PaymentFailed      PaymentStatus = "failed"
)

// ApprovalStatus tracks the admin review state of a booking.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalRejected    ApprovalStatus = "rejected"
)

// Travelers is the party composition for a booking.
type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Total returns the total head count.
func (t Travelers) Total() int {
	return t.Adults + t.Children
}

// Booking is the durable booking entity. It maps directly to the `bookings`
// table. Bookings are never deleted; cancellation and rejection are terminal
// status values, not row removal.
type Booking struct {
	ID          uuid.UUID   `json:"id"`
	TourID      string      `json:"tour_id"`
	ProductType ProductType `json:"product_type"`

	TotalAmount   int64         `json:"total_amount"` // in cents
	Currency      string        `json:"currency"`
	DepositAmount *int64        `json:"deposit_amount,omitempty"` // in cents
	BalanceAmount *int64        `json:"balance_amount,omitempty"` // in cents
	PaymentMethod PaymentMethod `json:"payment_method"`

	UserID      uuid.UUID `json:"user_id"`
	BookerName  string    `json:"booker_name"`
	BookerEmail string    `json:"booker_email"`
	BookerPhone *string   `json:"booker_phone,omitempty"`

	Travelers       Travelers  `json:"travelers"`
	SelectedDate    *time.Time `json:"selected_date,omitempty"`
	SpecialRequests *string    `json:"special_requests,omitempty"`

	Status         BookingStatus  `json:"status"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`

	AdminNotes      *string    `json:"admin_notes,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	DecidedBy       *uuid.UUID `json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`

	PaymentIntentID *string `json:"payment_intent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckoutRequest is the DTO for incoming payment initiation API requests.
// The submitted amount is untrusted advisory data; the server recomputes the
// canonical price before any charge is created.
type CheckoutRequest struct {
	TourID           string        `json:"tour_id"`
	ProductType      ProductType   `json:"product_type"`
	Amount           int64         `json:"amount"` // in cents, client-submitted
	Currency         string        `json:"currency"`
	Travelers        Travelers     `json:"travelers"`
	PaymentMethod    PaymentMethod `json:"payment_method,omitempty"`
	SingleSupplement bool          `json:"single_supplement"`
	BookerName       string        `json:"booker_name"`
	BookerEmail      string        `json:"booker_email"`
	BookerPhone      *string       `json:"booker_phone,omitempty"`
	SelectedDate     *time.Time    `json:"selected_date,omitempty"`
	SpecialRequests  *string       `json:"special_requests,omitempty"`
}

// CheckoutResult is returned to the client after a payment intent has been
// created and linked to a booking.
type CheckoutResult struct {
	BookingID       uuid.UUID `json:"booking_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	ClientSecret    string    `json:"client_secret"`
	AmountCharged   int64     `json:"amount_charged"` // in cents
	Currency        string    `json:"currency"`
	IsNewUser       bool      `json:"is_new_user"`
}

// BookingFilters controls admin booking list queries.
type BookingFilters struct {
	Status      string
	ProductType string
	BookerEmail string
	Limit       int
	Offset      int
}
