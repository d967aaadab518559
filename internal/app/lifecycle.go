/**
 * @description
 * BookingLifecycle owns the booking state machine: creation, payment linkage,
 * payment outcomes, approval decisions, cancellation, and completion.
 *
 * States:
 *   created → pending (payment not yet linked)
 *   created → confirmed (cash on arrival, settled in person)
 *   pending → pending_payment (payment intent attached)
 *   pending_payment → awaiting_approval (policy requires approval)
 *   pending_payment → confirmed (no approval, payment succeeded)
 *   awaiting_approval → confirmed (approved) | cancelled (rejected)
 *   confirmed → completed (post-trip, external trigger)
 *   any non-terminal → cancelled
 *
 * @notes
 * - Every transition attempt is guarded; violations return a typed error and
 *   never silently coerce state. The store enforces the same guards in SQL
 *   (conditional updates), so two admins racing on a decision resolve with
 *   the second writer receiving ErrAlreadyDecided.
 * - status, payment_status, and approval_status are independent axes. A
 *   booking can be payment-succeeded and approval-pending at the same time.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

// BookingLifecycle drives guarded transitions on the booking entity.
type BookingLifecycle struct {
	bookings store.BookingStore
	policies *PolicyRegistry
}

// NewBookingLifecycle creates a new BookingLifecycle.
func NewBookingLifecycle(bookings store.BookingStore, policies *PolicyRegistry) *BookingLifecycle {
	return &BookingLifecycle{bookings: bookings, policies: policies}
}

// CreateBookingParams carries everything needed to persist a new booking.
type CreateBookingParams struct {
	TourID          string
	ProductType     domain.ProductType
	TotalAmount     int64
	Currency        string
	PaymentMethod   domain.PaymentMethod
	UserID          uuid.UUID
	BookerName      string
	BookerEmail     string
	BookerPhone     *string
	Travelers       domain.Travelers
	SelectedDate    *time.Time
	SpecialRequests *string
}

// Create persists a booking in status pending before any external charge
// exists, so every charge is traceable to a booking even if the process
// crashes afterward. Approval status comes from the product policy; a
// deposit-method booking gets its deposit/balance split computed here.
func (l *BookingLifecycle) Create(ctx context.Context, params CreateBookingParams) (*domain.Booking, error) {
	policy, err := l.policies.Get(params.ProductType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	method := params.PaymentMethod
	if method == "" {
		method = policy.DefaultPaymentMethod
	}
	if !policy.AllowsMethod(method) {
		return nil, ErrPaymentMethodNotAllowed
	}

	b := &domain.Booking{
		ID:            uuid.New(),
		TourID:        params.TourID,
		ProductType:   params.ProductType,
		TotalAmount:   params.TotalAmount,
		Currency:      params.Currency,
		PaymentMethod: method,
		UserID:        params.UserID,
		BookerName:    params.BookerName,
		BookerEmail:   params.BookerEmail,
		BookerPhone:   params.BookerPhone,
		Travelers:     params.Travelers,
		SelectedDate:  params.SelectedDate,
		SpecialRequests: params.SpecialRequests,
		Status:          domain.BookingPending,
		PaymentStatus:   domain.PaymentPending,
		ApprovalStatus:  domain.ApprovalNotRequired,
	}

	if method == domain.PaymentMethodCashOnArrival {
		// No payment event will ever arrive for a cash booking, and
		// approval-gated products never accept cash, so the booking confirms
		// at creation and is settled in person on arrival.
		b.PaymentStatus = domain.PaymentNotRequired
		b.Status = domain.BookingConfirmed
	}
	if policy.RequiresApproval {
		b.ApprovalStatus = domain.ApprovalPending
	}
	if method == domain.PaymentMethodDeposit {
		deposit, err := l.policies.ComputeDeposit(params.ProductType, params.TotalAmount)
		if err != nil {
			return nil, err
		}
		balance := params.TotalAmount - deposit
		b.DepositAmount = &deposit
		b.BalanceAmount = &balance
	}

	if err := l.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// LinkPayment attaches a payment intent to a pending booking, transitioning
// it to pending_payment.
func (l *BookingLifecycle) LinkPayment(ctx context.Context, bookingID uuid.UUID, intentID string) error {
	if err := l.bookings.LinkPaymentIntent(ctx, bookingID, intentID); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return fmt.Errorf("%w: booking is not awaiting payment linkage", ErrInvalidTransition)
		}
		return err
	}
	return nil
}

// RecordPaymentSuccess marks the payment outcome and advances the booking:
// straight to confirmed when no approval is required, to awaiting_approval
// otherwise. Deposit-funded bookings record deposit_paid instead of
// succeeded, since the balance remains due.
func (l *BookingLifecycle) RecordPaymentSuccess(ctx context.Context, b *domain.Booking) (domain.BookingStatus, error) {
	payment := domain.PaymentSucceeded
	if b.PaymentMethod == domain.PaymentMethodDeposit {
		payment = domain.PaymentDepositPaid
	}

	next := domain.BookingConfirmed
	if b.ApprovalStatus == domain.ApprovalPending {
		next = domain.BookingAwaitingApproval
	}

	if err := l.bookings.MarkPaymentOutcome(ctx, b.ID, payment, next); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return "", fmt.Errorf("%w: booking is not awaiting a payment outcome", ErrInvalidTransition)
		}
		return "", err
	}
	return next, nil
}

// RecordPaymentFailure marks the payment as failed. The booking stays in
// pending_payment; a failed charge can be retried with a fresh intent.
func (l *BookingLifecycle) RecordPaymentFailure(ctx context.Context, b *domain.Booking) error {
	if err := l.bookings.MarkPaymentOutcome(ctx, b.ID, domain.PaymentFailed, domain.BookingPendingPayment); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return fmt.Errorf("%w: booking is not awaiting a payment outcome", ErrInvalidTransition)
		}
		return err
	}
	return nil
}

// Approve confirms an approval-pending booking. Guards: the decision must
// still be pending, and the booking must be funded (deposit_paid or
// succeeded) — an unpaid booking cannot be approved.
func (l *BookingLifecycle) Approve(ctx context.Context, bookingID, adminID uuid.UUID, notes *string) (*domain.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	switch b.ApprovalStatus {
	case domain.ApprovalPending:
	case domain.ApprovalApproved, domain.ApprovalRejected:
		return nil, store.ErrAlreadyDecided
	default:
		return nil, fmt.Errorf("%w: booking does not require approval", ErrInvalidTransition)
	}
	if b.PaymentStatus != domain.PaymentDepositPaid && b.PaymentStatus != domain.PaymentSucceeded {
		return nil, ErrBookingUnpaid
	}
	if b.Status != domain.BookingAwaitingApproval {
		return nil, fmt.Errorf("%w: booking is not awaiting approval", ErrInvalidTransition)
	}

	err = l.bookings.SetDecision(ctx, bookingID, store.DecisionParams{
		Approval:   domain.ApprovalApproved,
		Status:     domain.BookingConfirmed,
		AdminID:    adminID,
		AdminNotes: notes,
		DecidedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return l.bookings.GetByID(ctx, bookingID)
}

// Reject declines an approval-pending booking. The reason is mandatory and
// persisted verbatim for customer-facing messaging; rejection cancels the
// booking.
func (l *BookingLifecycle) Reject(ctx context.Context, bookingID, adminID uuid.UUID, reason string) (*domain.Booking, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.ApprovalStatus {
	case domain.ApprovalPending:
	case domain.ApprovalApproved, domain.ApprovalRejected:
		return nil, store.ErrAlreadyDecided
	default:
		return nil, fmt.Errorf("%w: booking does not require approval", ErrInvalidTransition)
	}

	err = l.bookings.SetDecision(ctx, bookingID, store.DecisionParams{
		Approval:        domain.ApprovalRejected,
		Status:          domain.BookingCancelled,
		AdminID:         adminID,
		RejectionReason: &reason,
		DecidedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return l.bookings.GetByID(ctx, bookingID)
}

// Cancel moves any non-terminal booking to cancelled. Terminal states accept
// no further transitions.
func (l *BookingLifecycle) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*domain.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: booking is already %s", ErrInvalidTransition, b.Status)
	}
	if err := l.bookings.SetCancellation(ctx, bookingID, reason); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: booking reached a terminal state concurrently", ErrInvalidTransition)
		}
		return nil, err
	}
	return l.bookings.GetByID(ctx, bookingID)
}

// MarkCompleted transitions a confirmed booking to completed. Driven by an
// external post-trip trigger, not an in-process timer.
func (l *BookingLifecycle) MarkCompleted(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	err := l.bookings.UpdateStatus(ctx, bookingID, []domain.BookingStatus{domain.BookingConfirmed}, domain.BookingCompleted)
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: only confirmed bookings can complete", ErrInvalidTransition)
		}
		return nil, err
	}
	return l.bookings.GetByID(ctx, bookingID)
}
