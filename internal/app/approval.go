/**
 * @description
 * ApprovalWorkflow processes payment webhook events and admin approval
 * decisions. Webhook handling is idempotent: the gateway redelivers events,
 * so processing the same event twice must leave the booking exactly as one
 * delivery would.
 *
 * @notes
 * - Event-to-booking resolution is dual-keyed: the payment intent id is
 *   authoritative, with the metadata booking_id as fallback for intents that
 *   were never linked. When both resolve and disagree, the event is rejected
 *   with ErrEventConflict rather than guessing.
 * - All customer email is best-effort; a publish failure never fails the
 *   webhook or the admin request.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// ApprovalWorkflow drives webhook-triggered payment outcomes and admin
// approval decisions.
type ApprovalWorkflow struct {
	bookings  store.BookingStore
	lifecycle *BookingLifecycle
	notifier  EmailNotifier
}

// NewApprovalWorkflow creates a new ApprovalWorkflow.
func NewApprovalWorkflow(bookings store.BookingStore, lifecycle *BookingLifecycle, notifier EmailNotifier) *ApprovalWorkflow {
	return &ApprovalWorkflow{bookings: bookings, lifecycle: lifecycle, notifier: notifier}
}

// resolveBooking locates the booking for a payment event. The intent id is
// checked first; the metadata booking_id is the fallback. A disagreement
// between the two is a conflict, never a silent pick.
func (w *ApprovalWorkflow) resolveBooking(ctx context.Context, intentID string, metadata map[string]string) (*domain.Booking, error) {
	byIntent, err := w.bookings.FindByPaymentIntentID(ctx, intentID)
	if err != nil && !errors.Is(err, store.ErrBookingNotFound) {
		return nil, fmt.Errorf("resolve booking by intent: %w", err)
	}

	metaID, hasMeta := parseBookingID(metadata)

	if byIntent != nil {
		if hasMeta && metaID != byIntent.ID {
			log.Printf("level=error component=approval_workflow msg=\"event keys disagree\" intent_id=%s intent_booking=%s metadata_booking=%s", intentID, byIntent.ID, metaID)
			return nil, ErrEventConflict
		}
		return byIntent, nil
	}

	if !hasMeta {
		return nil, store.ErrBookingNotFound
	}
	byMeta, err := w.bookings.GetByID(ctx, metaID)
	if err != nil {
		return nil, err
	}
	return byMeta, nil
}

// OnPaymentSucceeded applies a successful payment event. Redeliveries and
// events for bookings already past the payment stage are acknowledged as
// no-ops. Returns the booking status after processing.
func (w *ApprovalWorkflow) OnPaymentSucceeded(ctx context.Context, intentID string, metadata map[string]string) (domain.BookingStatus, error) {
	b, err := w.resolveBooking(ctx, intentID, metadata)
	if err != nil {
		return "", err
	}

	switch b.Status {
	case domain.BookingConfirmed, domain.BookingAwaitingApproval, domain.BookingCompleted:
		// Already applied; redelivery.
		return b.Status, nil
	case domain.BookingCancelled, domain.BookingRefunded:
		log.Printf("level=warn component=approval_workflow msg=\"payment succeeded for terminal booking\" booking_id=%s status=%s intent_id=%s", b.ID, b.Status, intentID)
		return b.Status, nil
	}

	next, err := w.lifecycle.RecordPaymentSuccess(ctx, b)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// A concurrent delivery won the conditional update.
			current, getErr := w.bookings.GetByID(ctx, b.ID)
			if getErr != nil {
				return "", getErr
			}
			return current.Status, nil
		}
		return "", err
	}

	if next == domain.BookingConfirmed {
		w.sendConfirmation(b.ID)
	} else {
		log.Printf("level=info component=approval_workflow msg=\"booking queued for approval\" booking_id=%s product_type=%s", b.ID, b.ProductType)
	}
	return next, nil
}

// OnPaymentFailed applies a failed payment event. Only a booking still
// awaiting its payment outcome is touched; everything else is a no-op ack.
func (w *ApprovalWorkflow) OnPaymentFailed(ctx context.Context, intentID string, metadata map[string]string) error {
	b, err := w.resolveBooking(ctx, intentID, metadata)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingPendingPayment || b.PaymentStatus == domain.PaymentFailed {
		return nil
	}
	if err := w.lifecycle.RecordPaymentFailure(ctx, b); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}
	log.Printf("level=info component=approval_workflow msg=\"payment failed\" booking_id=%s intent_id=%s", b.ID, intentID)
	return nil
}

// Approve confirms an approval-pending booking and emails the customer.
func (w *ApprovalWorkflow) Approve(ctx context.Context, bookingID, adminID uuid.UUID, notes *string) (*domain.Booking, error) {
	b, err := w.lifecycle.Approve(ctx, bookingID, adminID, notes)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=approval_workflow msg=\"booking approved\" booking_id=%s admin_id=%s", bookingID, adminID)
	w.sendDecision(b)
	return b, nil
}

// Reject declines an approval-pending booking and emails the customer with
// the reason.
func (w *ApprovalWorkflow) Reject(ctx context.Context, bookingID, adminID uuid.UUID, reason string) (*domain.Booking, error) {
	b, err := w.lifecycle.Reject(ctx, bookingID, adminID, reason)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=approval_workflow msg=\"booking rejected\" booking_id=%s admin_id=%s", bookingID, adminID)
	w.sendDecision(b)
	return b, nil
}

// PendingApprovals lists bookings awaiting an admin decision.
func (w *ApprovalWorkflow) PendingApprovals(ctx context.Context) ([]domain.Booking, error) {
	return w.bookings.FindPendingApproval(ctx)
}

// ListBookings lists bookings for the admin dashboard with optional filters.
func (w *ApprovalWorkflow) ListBookings(ctx context.Context, filters domain.BookingFilters) ([]domain.Booking, error) {
	return w.bookings.FindAll(ctx, filters)
}

func (w *ApprovalWorkflow) sendConfirmation(bookingID uuid.UUID) {
	ctx := context.Background()
	b, err := w.bookings.GetByID(ctx, bookingID)
	if err != nil {
		log.Printf("level=warn component=approval_workflow msg=\"confirmation email skipped, fetch failed\" booking_id=%s err=%v", bookingID, err)
		return
	}
	if err := w.notifier.SendBookingConfirmation(ctx, b); err != nil {
		log.Printf("level=warn component=approval_workflow msg=\"confirmation email publish failed\" booking_id=%s err=%v", bookingID, err)
	}
}

func (w *ApprovalWorkflow) sendDecision(b *domain.Booking) {
	if err := w.notifier.SendApprovalDecision(context.Background(), b); err != nil {
		log.Printf("level=warn component=approval_workflow msg=\"decision email publish failed\" booking_id=%s err=%v", b.ID, err)
	}
}

func parseBookingID(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata["booking_id"]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
