/**
 * @description
 * EmailNotifier is the outbound notification collaborator. This core never
 * renders or delivers mail itself; it publishes events to a topic exchange
 * that the mailer consumes. Every send is best-effort: a notification
 * failure is logged and never propagated as a request failure, because the
 * booking/payment state is authoritative regardless of whether the customer
 * was emailed.
 *
 * @dependencies
 * - pkg/rabbitmq: Topic-exchange event producer.
 */

package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/pkg/rabbitmq"
)

// EmailNotifier sends customer-facing booking mail, fire-and-forget.
type EmailNotifier interface {
	SendBookingConfirmation(ctx context.Context, b *domain.Booking) error
	SendApprovalDecision(ctx context.Context, b *domain.Booking) error
	SendGuestWelcome(ctx context.Context, account *domain.GuestAccount, bookingID uuid.UUID) error
}

const notificationExchange = "ibooktours.events"

// BookingEmailPayload is the message published for confirmation and decision
// emails.
type BookingEmailPayload struct {
	BookingID      uuid.UUID             `json:"booking_id"`
	BookerEmail    string                `json:"booker_email"`
	BookerName     string                `json:"booker_name"`
	TourID         string                `json:"tour_id"`
	ProductType    domain.ProductType    `json:"product_type"`
	Status         domain.BookingStatus  `json:"status"`
	ApprovalStatus domain.ApprovalStatus `json:"approval_status"`
	TotalAmount    int64                 `json:"total_amount"`
	Currency       string                `json:"currency"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

// GuestWelcomePayload is the message published for newly provisioned guest
// accounts; it carries the reset token so the guest can claim the account.
type GuestWelcomePayload struct {
	UserID      uuid.UUID  `json:"user_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	BookingID   uuid.UUID  `json:"booking_id"`
	ResetToken  string     `json:"reset_token,omitempty"`
	ResetExpiry *time.Time `json:"reset_expiry,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// EventEmailNotifier publishes email events to the notification exchange.
type EventEmailNotifier struct {
	producer rabbitmq.Publisher
}

// NewEventEmailNotifier creates a new EventEmailNotifier.
func NewEventEmailNotifier(producer rabbitmq.Publisher) *EventEmailNotifier {
	return &EventEmailNotifier{producer: producer}
}

func (n *EventEmailNotifier) payload(b *domain.Booking) BookingEmailPayload {
	return BookingEmailPayload{
		BookingID:       b.ID,
		BookerEmail:     b.BookerEmail,
		BookerName:      b.BookerName,
		TourID:          b.TourID,
		ProductType:     b.ProductType,
		Status:          b.Status,
		ApprovalStatus:  b.ApprovalStatus,
		TotalAmount:     b.TotalAmount,
		Currency:        b.Currency,
		RejectionReason: b.RejectionReason,
		Timestamp:       time.Now().UTC(),
	}
}

// SendBookingConfirmation publishes a confirmation email event.
func (n *EventEmailNotifier) SendBookingConfirmation(ctx context.Context, b *domain.Booking) error {
	return n.producer.Publish(ctx, notificationExchange, "booking.email.confirmation", n.payload(b))
}

// SendApprovalDecision publishes an approval/rejection email event.
func (n *EventEmailNotifier) SendApprovalDecision(ctx context.Context, b *domain.Booking) error {
	return n.producer.Publish(ctx, notificationExchange, "booking.email.decision", n.payload(b))
}

// SendGuestWelcome publishes a welcome/reset email event for a provisioned
// guest account.
func (n *EventEmailNotifier) SendGuestWelcome(ctx context.Context, account *domain.GuestAccount, bookingID uuid.UUID) error {
	return n.producer.Publish(ctx, notificationExchange, "booking.email.welcome", GuestWelcomePayload{
		UserID:      account.User.ID,
		Email:       account.User.Email,
		Name:        account.User.Name,
		BookingID:   bookingID,
		ResetToken:  account.ResetToken,
		ResetExpiry: account.ResetExpiry,
		Timestamp:   time.Now().UTC(),
	})
}
