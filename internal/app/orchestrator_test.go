package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
	"github.com/IBookTours/IBookTours-sub001/pkg/paygate"
)

type gatewayStub struct {
	createErr error
	cancelled []string
	requests  []paygate.CreateIntentRequest

	nextID int
}

func (g *gatewayStub) CreateIntent(ctx context.Context, req paygate.CreateIntentRequest) (*paygate.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.requests = append(g.requests, req)
	g.nextID++
	return &paygate.Intent{
		ID:           "pi_" + uuid.NewString()[:8],
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       paygate.IntentStatusPending,
		ClientSecret: "secret_test",
		Metadata:     req.Metadata,
	}, nil
}

func (g *gatewayStub) GetIntent(ctx context.Context, intentID string) (*paygate.Intent, error) {
	return &paygate.Intent{ID: intentID, Status: paygate.IntentStatusPending}, nil
}

func (g *gatewayStub) CancelIntent(ctx context.Context, intentID string) (*paygate.Intent, error) {
	g.cancelled = append(g.cancelled, intentID)
	return &paygate.Intent{ID: intentID, Status: paygate.IntentStatusCanceled}, nil
}

type orchestratorFixture struct {
	orchestrator *PaymentIntentOrchestrator
	bookings     *memBookingStore
	users        *userStoreStub
	gateway      *gatewayStub
	notifier     *notifierStub
}

func setupOrchestrator(t *testing.T, unitPrice int64, flags domain.PricingFlags) *orchestratorFixture {
	t.Helper()

	registry := mustRegistry(t)
	bookings := newMemBookingStore()
	users := newUserStoreStub()
	gateway := &gatewayStub{}
	notifier := &notifierStub{}

	catalog := &catalogStub{item: &domain.CatalogItem{
		ItemID:         "santorini-day",
		UnitPriceCents: unitPrice,
		Currency:       "EUR",
		Flags:          flags,
	}}

	lifecycle := NewBookingLifecycle(bookings, registry)
	orchestrator := NewPaymentIntentOrchestrator(
		NewPriceVerifier(catalog),
		NewGuestAccountProvisioner(users, time.Hour),
		lifecycle,
		registry,
		bookings,
		gateway,
		notifier,
		"EUR",
	)
	return &orchestratorFixture{
		orchestrator: orchestrator,
		bookings:     bookings,
		users:        users,
		gateway:      gateway,
		notifier:     notifier,
	}
}

func checkoutRequest(productType domain.ProductType, amount int64) domain.CheckoutRequest {
	return domain.CheckoutRequest{
		TourID:      "santorini-day",
		ProductType: productType,
		Amount:      amount,
		Currency:    "EUR",
		Travelers:   domain.Travelers{Adults: 2},
		BookerName:  "Maria",
		BookerEmail: "maria@example.com",
	}
}

func TestInitiate_HappyPath(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	result, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if result.PaymentIntentID == "" || result.ClientSecret == "" {
		t.Fatal("expected an intent id and client secret")
	}
	if result.AmountCharged != 20000 {
		t.Fatalf("expected charge 20000, got %d", result.AmountCharged)
	}

	b, err := f.bookings.GetByID(context.Background(), result.BookingID)
	if err != nil {
		t.Fatalf("booking lookup failed: %v", err)
	}
	if b.Status != domain.BookingPendingPayment {
		t.Fatalf("expected pending_payment after link, got %s", b.Status)
	}
	if b.PaymentIntentID == nil || *b.PaymentIntentID != result.PaymentIntentID {
		t.Fatal("expected the intent to be linked to the booking")
	}
}

func TestInitiate_PriceMismatchHasNoSideEffects(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	_, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 19999))
	if !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("expected ErrPriceMismatch, got %v", err)
	}
	if len(f.bookings.bookings) != 0 {
		t.Fatal("mismatch must not create a booking")
	}
	if len(f.users.users) != 0 {
		t.Fatal("mismatch must not provision an account")
	}
	if len(f.gateway.requests) != 0 {
		t.Fatal("mismatch must not reach the gateway")
	}
}

func TestInitiate_ChargesExpectedNotSubmitted(t *testing.T) {
	// A tampered client could submit a matching total only by computing it
	// correctly; the gateway charge always comes from the server-side
	// breakdown, so the two are the same number by construction. Guard the
	// wiring anyway by asserting the gateway saw the canonical amount.
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	result, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if len(f.gateway.requests) != 1 {
		t.Fatalf("expected 1 gateway request, got %d", len(f.gateway.requests))
	}
	if f.gateway.requests[0].Amount != 20000 {
		t.Fatalf("gateway must receive the canonical amount, got %d", f.gateway.requests[0].Amount)
	}
	b, _ := f.bookings.GetByID(context.Background(), result.BookingID)
	if b.TotalAmount != 20000 {
		t.Fatalf("booking must persist the canonical total, got %d", b.TotalAmount)
	}
}

func TestInitiate_DepositChargesDepositOnly(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	req := checkoutRequest(domain.ProductVacationPackage, 20000)
	req.PaymentMethod = domain.PaymentMethodDeposit

	result, err := f.orchestrator.Initiate(context.Background(), req)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	// Vacation packages carry a 30% deposit.
	if result.AmountCharged != 6000 {
		t.Fatalf("expected deposit charge 6000, got %d", result.AmountCharged)
	}
	b, _ := f.bookings.GetByID(context.Background(), result.BookingID)
	if b.TotalAmount != 20000 {
		t.Fatalf("total must stay 20000, got %d", b.TotalAmount)
	}
	if b.DepositAmount == nil || *b.DepositAmount != 6000 {
		t.Fatal("expected deposit amount 6000 on the booking")
	}
}

func TestInitiate_GatewayTimeoutLeavesBookingPending(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})
	f.gateway.createErr = context.DeadlineExceeded

	_, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if !errors.Is(err, ErrGatewayTimeout) {
		t.Fatalf("expected ErrGatewayTimeout, got %v", err)
	}

	if len(f.bookings.bookings) != 1 {
		t.Fatalf("expected booking to survive the timeout, got %d bookings", len(f.bookings.bookings))
	}
	for _, b := range f.bookings.bookings {
		if b.Status != domain.BookingPending {
			t.Fatalf("expected booking to stay pending, got %s", b.Status)
		}
		if b.PaymentIntentID != nil {
			t.Fatal("no intent id must be recorded on timeout")
		}
	}
}

func TestInitiate_GatewayDecline(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})
	declined := &paygate.ErrorResponse{StatusCode: 402}
	declined.Err.Code = "card_declined"
	declined.Err.Message = "Your card was declined."
	f.gateway.createErr = declined

	_, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if !errors.Is(err, ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}
}

func TestInitiate_CashOnArrivalSkipsGateway(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	req := checkoutRequest(domain.ProductDayTour, 20000)
	req.PaymentMethod = domain.PaymentMethodCashOnArrival

	result, err := f.orchestrator.Initiate(context.Background(), req)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if result.PaymentIntentID != "" {
		t.Fatal("cash booking must not create a gateway intent")
	}
	if len(f.gateway.requests) != 0 {
		t.Fatal("cash booking must not reach the gateway")
	}
	b, _ := f.bookings.GetByID(context.Background(), result.BookingID)
	if b.Status != domain.BookingConfirmed {
		t.Fatalf("expected cash booking to confirm at creation, got %s", b.Status)
	}
	if b.PaymentStatus != domain.PaymentNotRequired {
		t.Fatalf("expected payment not_required, got %s", b.PaymentStatus)
	}
	if f.notifier.confirmations != 1 {
		t.Fatalf("expected 1 confirmation email for a cash booking, got %d", f.notifier.confirmations)
	}
}

func TestInitiate_ProvisionsGuestAndSendsWelcome(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	result, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if !result.IsNewUser {
		t.Fatal("expected a newly provisioned guest")
	}
	if _, ok := f.users.users["maria@example.com"]; !ok {
		t.Fatal("expected guest account under normalized email")
	}

	// Welcome email is published on a fire-and-forget goroutine.
	deadline := time.After(2 * time.Second)
	for f.notifier.welcomes == 0 {
		select {
		case <-deadline:
			t.Fatal("expected a welcome email for a new guest")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestInitiate_ValidationErrors(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	noAdults := checkoutRequest(domain.ProductDayTour, 20000)
	noAdults.Travelers = domain.Travelers{Adults: 0, Children: 2}
	if _, err := f.orchestrator.Initiate(context.Background(), noAdults); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero adults, got %v", err)
	}

	badEmail := checkoutRequest(domain.ProductDayTour, 20000)
	badEmail.BookerEmail = "not-an-email"
	if _, err := f.orchestrator.Initiate(context.Background(), badEmail); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad email, got %v", err)
	}
}

func TestInitiate_UnknownItem(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})
	registry := mustRegistry(t)
	lifecycle := NewBookingLifecycle(f.bookings, registry)
	orchestrator := NewPaymentIntentOrchestrator(
		NewPriceVerifier(&catalogStub{err: store.ErrItemNotFound}),
		NewGuestAccountProvisioner(f.users, time.Hour),
		lifecycle,
		registry,
		f.bookings,
		f.gateway,
		f.notifier,
		"EUR",
	)

	_, err := orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if !errors.Is(err, store.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if len(f.bookings.bookings) != 0 {
		t.Fatal("unknown item must not create a booking")
	}
}

func TestRetryIntent_RecoversStrandedBooking(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})
	f.gateway.createErr = context.DeadlineExceeded

	_, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if !errors.Is(err, ErrGatewayTimeout) {
		t.Fatalf("expected ErrGatewayTimeout, got %v", err)
	}

	var strandedID uuid.UUID
	for id := range f.bookings.bookings {
		strandedID = id
	}

	f.gateway.createErr = nil
	result, err := f.orchestrator.RetryIntent(context.Background(), strandedID)
	if err != nil {
		t.Fatalf("RetryIntent failed: %v", err)
	}
	if result.PaymentIntentID == "" {
		t.Fatal("expected an intent id after retry")
	}
	b, _ := f.bookings.GetByID(context.Background(), strandedID)
	if b.Status != domain.BookingPendingPayment {
		t.Fatalf("expected pending_payment after retry, got %s", b.Status)
	}
}

func TestRetryIntent_RefusedOnceLinked(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	result, err := f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if _, err := f.orchestrator.RetryIntent(context.Background(), result.BookingID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition retrying a linked booking, got %v", err)
	}
}

func TestReconcileStranded_SweepsAndRecovers(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})
	f.gateway.createErr = context.DeadlineExceeded

	for i := 0; i < 3; i++ {
		_, _ = f.orchestrator.Initiate(context.Background(), checkoutRequest(domain.ProductDayTour, 20000))
	}
	if len(f.bookings.bookings) != 3 {
		t.Fatalf("expected 3 stranded bookings, got %d", len(f.bookings.bookings))
	}

	f.gateway.createErr = nil
	recovered, err := f.orchestrator.ReconcileStranded(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("ReconcileStranded failed: %v", err)
	}
	if recovered != 3 {
		t.Fatalf("expected 3 recovered, got %d", recovered)
	}
	for _, b := range f.bookings.bookings {
		if b.Status != domain.BookingPendingPayment {
			t.Fatalf("expected pending_payment after sweep, got %s", b.Status)
		}
	}
}

func TestReconcileStranded_IgnoresCashBookings(t *testing.T) {
	f := setupOrchestrator(t, 10000, domain.PricingFlags{})

	// A cash row stuck in pending (legacy data, manual edit) must not be
	// swept into intent creation.
	stale := &domain.Booking{
		ID:            uuid.New(),
		TourID:        "santorini-day",
		ProductType:   domain.ProductDayTour,
		TotalAmount:   20000,
		Currency:      "EUR",
		PaymentMethod: domain.PaymentMethodCashOnArrival,
		UserID:        uuid.New(),
		Status:        domain.BookingPending,
		PaymentStatus: domain.PaymentNotRequired,
	}
	if err := f.bookings.Create(context.Background(), stale); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	recovered, err := f.orchestrator.ReconcileStranded(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("ReconcileStranded failed: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("expected 0 recovered, got %d", recovered)
	}
	if len(f.gateway.requests) != 0 {
		t.Fatal("cash booking must not reach the gateway")
	}
}
