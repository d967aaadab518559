package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
)

type notifierStub struct {
	confirmations int
	decisions     int
	welcomes      int

	sendErr error
}

func (n *notifierStub) SendBookingConfirmation(ctx context.Context, b *domain.Booking) error {
	n.confirmations++
	return n.sendErr
}

func (n *notifierStub) SendApprovalDecision(ctx context.Context, b *domain.Booking) error {
	n.decisions++
	return n.sendErr
}

func (n *notifierStub) SendGuestWelcome(ctx context.Context, account *domain.GuestAccount, bookingID uuid.UUID) error {
	n.welcomes++
	return n.sendErr
}

func setupWorkflow(t *testing.T) (*ApprovalWorkflow, *BookingLifecycle, *memBookingStore, *notifierStub) {
	t.Helper()
	bookings := newMemBookingStore()
	lc := NewBookingLifecycle(bookings, mustRegistry(t))
	notifier := &notifierStub{}
	return NewApprovalWorkflow(bookings, lc, notifier), lc, bookings, notifier
}

func linkedBooking(t *testing.T, lc *BookingLifecycle, productType domain.ProductType, intentID string) *domain.Booking {
	t.Helper()
	b, err := lc.Create(context.Background(), baseParams(productType, domain.PaymentMethodFull))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := lc.LinkPayment(context.Background(), b.ID, intentID); err != nil {
		t.Fatalf("LinkPayment failed: %v", err)
	}
	return b
}

func TestOnPaymentSucceeded_DayTourConfirms(t *testing.T) {
	wf, lc, bookings, notifier := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductDayTour, "pi_day")

	status, err := wf.OnPaymentSucceeded(context.Background(), "pi_day", nil)
	if err != nil {
		t.Fatalf("OnPaymentSucceeded failed: %v", err)
	}
	if status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed, got %s", status)
	}
	after, _ := bookings.GetByID(context.Background(), b.ID)
	if after.PaymentStatus != domain.PaymentSucceeded {
		t.Fatalf("expected payment succeeded, got %s", after.PaymentStatus)
	}
	if notifier.confirmations != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", notifier.confirmations)
	}
}

func TestOnPaymentSucceeded_VacationPackageAwaitsApproval(t *testing.T) {
	wf, lc, bookings, notifier := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductVacationPackage, "pi_vac")

	status, err := wf.OnPaymentSucceeded(context.Background(), "pi_vac", nil)
	if err != nil {
		t.Fatalf("OnPaymentSucceeded failed: %v", err)
	}
	if status != domain.BookingAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", status)
	}
	after, _ := bookings.GetByID(context.Background(), b.ID)
	if after.PaymentStatus != domain.PaymentSucceeded {
		t.Fatalf("payment axis must record success independently of approval, got %s", after.PaymentStatus)
	}
	if after.ApprovalStatus != domain.ApprovalPending {
		t.Fatalf("approval axis must stay pending, got %s", after.ApprovalStatus)
	}
	if notifier.confirmations != 0 {
		t.Fatal("no confirmation email before the approval decision")
	}
}

func TestOnPaymentSucceeded_TwiceEqualsOnce(t *testing.T) {
	wf, lc, bookings, notifier := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductDayTour, "pi_dup")

	if _, err := wf.OnPaymentSucceeded(context.Background(), "pi_dup", nil); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	first, _ := bookings.GetByID(context.Background(), b.ID)

	status, err := wf.OnPaymentSucceeded(context.Background(), "pi_dup", nil)
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if status != domain.BookingConfirmed {
		t.Fatalf("redelivery reported %s", status)
	}
	second, _ := bookings.GetByID(context.Background(), b.ID)
	if first.Status != second.Status || first.PaymentStatus != second.PaymentStatus || first.ApprovalStatus != second.ApprovalStatus {
		t.Fatal("redelivery changed booking state")
	}
	if notifier.confirmations != 1 {
		t.Fatalf("redelivery must not re-send email, got %d sends", notifier.confirmations)
	}
}

func TestOnPaymentSucceeded_MetadataFallback(t *testing.T) {
	wf, lc, _, _ := setupWorkflow(t)

	// Booking exists but the intent was never linked (crash between create
	// and link). The event still resolves via metadata.
	b, err := lc.Create(context.Background(), baseParams(domain.ProductDayTour, domain.PaymentMethodFull))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	status, err := wf.OnPaymentSucceeded(context.Background(), "pi_unlinked", map[string]string{"booking_id": b.ID.String()})
	if err != nil {
		t.Fatalf("OnPaymentSucceeded failed: %v", err)
	}
	if status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed via metadata fallback, got %s", status)
	}
}

func TestOnPaymentSucceeded_ConflictingKeys(t *testing.T) {
	wf, lc, _, _ := setupWorkflow(t)
	linkedBooking(t, lc, domain.ProductDayTour, "pi_conf")
	other, _ := lc.Create(context.Background(), baseParams(domain.ProductDayTour, domain.PaymentMethodFull))

	_, err := wf.OnPaymentSucceeded(context.Background(), "pi_conf", map[string]string{"booking_id": other.ID.String()})
	if !errors.Is(err, ErrEventConflict) {
		t.Fatalf("expected ErrEventConflict, got %v", err)
	}
}

func TestOnPaymentSucceeded_UnknownIntent(t *testing.T) {
	wf, _, _, _ := setupWorkflow(t)

	_, err := wf.OnPaymentSucceeded(context.Background(), "pi_ghost", nil)
	if !errors.Is(err, store.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestOnPaymentFailed_Idempotent(t *testing.T) {
	wf, lc, bookings, _ := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductDayTour, "pi_fail")

	if err := wf.OnPaymentFailed(context.Background(), "pi_fail", nil); err != nil {
		t.Fatalf("first failure delivery errored: %v", err)
	}
	if err := wf.OnPaymentFailed(context.Background(), "pi_fail", nil); err != nil {
		t.Fatalf("redelivery errored: %v", err)
	}
	after, _ := bookings.GetByID(context.Background(), b.ID)
	if after.Status != domain.BookingPendingPayment {
		t.Fatalf("expected pending_payment, got %s", after.Status)
	}
	if after.PaymentStatus != domain.PaymentFailed {
		t.Fatalf("expected payment failed, got %s", after.PaymentStatus)
	}
}

func TestOnPaymentFailed_IgnoredAfterSuccess(t *testing.T) {
	wf, lc, bookings, _ := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductDayTour, "pi_race")

	if _, err := wf.OnPaymentSucceeded(context.Background(), "pi_race", nil); err != nil {
		t.Fatalf("success delivery failed: %v", err)
	}
	// Late out-of-order failure event must not undo the confirmation.
	if err := wf.OnPaymentFailed(context.Background(), "pi_race", nil); err != nil {
		t.Fatalf("late failure delivery errored: %v", err)
	}
	after, _ := bookings.GetByID(context.Background(), b.ID)
	if after.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed to survive late failure event, got %s", after.Status)
	}
}

func TestApprove_SendsDecisionEmail(t *testing.T) {
	wf, lc, _, notifier := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductVacationPackage, "pi_appr")

	if _, err := wf.OnPaymentSucceeded(context.Background(), "pi_appr", nil); err != nil {
		t.Fatalf("payment delivery failed: %v", err)
	}

	approved, err := wf.Approve(context.Background(), b.ID, uuid.New(), nil)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed, got %s", approved.Status)
	}
	if notifier.decisions != 1 {
		t.Fatalf("expected 1 decision email, got %d", notifier.decisions)
	}
}

func TestApprove_NotifierFailureDoesNotFailDecision(t *testing.T) {
	wf, lc, _, notifier := setupWorkflow(t)
	notifier.sendErr = errors.New("broker down")
	b := linkedBooking(t, lc, domain.ProductVacationPackage, "pi_mail")

	if _, err := wf.OnPaymentSucceeded(context.Background(), "pi_mail", nil); err != nil {
		t.Fatalf("payment delivery failed: %v", err)
	}
	if _, err := wf.Approve(context.Background(), b.ID, uuid.New(), nil); err != nil {
		t.Fatalf("Approve must succeed despite email failure: %v", err)
	}
}

func TestReject_AfterRejectIsUnchanged(t *testing.T) {
	wf, lc, bookings, _ := setupWorkflow(t)
	b := linkedBooking(t, lc, domain.ProductVacationPackage, "pi_rej")
	if _, err := wf.OnPaymentSucceeded(context.Background(), "pi_rej", nil); err != nil {
		t.Fatalf("payment delivery failed: %v", err)
	}

	if _, err := wf.Reject(context.Background(), b.ID, uuid.New(), "fully booked"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := wf.Approve(context.Background(), b.ID, uuid.New(), nil); !errors.Is(err, store.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided approving a rejected booking, got %v", err)
	}
	after, _ := bookings.GetByID(context.Background(), b.ID)
	if after.Status != domain.BookingCancelled || after.ApprovalStatus != domain.ApprovalRejected {
		t.Fatalf("rejected booking mutated: status=%s approval=%s", after.Status, after.ApprovalStatus)
	}
}
