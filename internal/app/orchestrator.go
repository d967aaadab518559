/**
 * @description
 * PaymentIntentOrchestrator runs the checkout sequence end to end:
 *
 *   verify price -> resolve purchaser -> create booking (pending) ->
 *   create gateway payment intent -> link intent to booking
 *
 * The booking row is persisted before the gateway is called, so every charge
 * that exists at the gateway is traceable to a booking even if the process
 * crashes between the two calls. The amount handed to the gateway is always
 * the server-computed expected amount, never the client-submitted one.
 *
 * @notes
 * - A gateway timeout is an unknown outcome, not a failure. The intent may or
 *   may not exist on the gateway side, so the booking is left in pending with
 *   no intent id and RetryIntent reconciles it later.
 * - cash_on_arrival checkouts skip the gateway entirely; the booking confirms
 *   at creation and is settled in person on arrival.
 *
 * @dependencies
 * - pkg/paygate: Payment gateway HTTP client types.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
	"github.com/IBookTours/IBookTours-sub001/pkg/paygate"
)

// PaymentGateway is the slice of the gateway client the orchestrator needs.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req paygate.CreateIntentRequest) (*paygate.Intent, error)
	GetIntent(ctx context.Context, intentID string) (*paygate.Intent, error)
	CancelIntent(ctx context.Context, intentID string) (*paygate.Intent, error)
}

// PaymentIntentOrchestrator coordinates verification, provisioning, booking
// creation, and gateway intent creation for a checkout.
type PaymentIntentOrchestrator struct {
	verifier    *PriceVerifier
	provisioner *GuestAccountProvisioner
	lifecycle   *BookingLifecycle
	policies    *PolicyRegistry
	bookings    store.BookingStore
	gateway     PaymentGateway
	notifier    EmailNotifier

	defaultCurrency string
}

// NewPaymentIntentOrchestrator creates a new PaymentIntentOrchestrator.
func NewPaymentIntentOrchestrator(
	verifier *PriceVerifier,
	provisioner *GuestAccountProvisioner,
	lifecycle *BookingLifecycle,
	policies *PolicyRegistry,
	bookings store.BookingStore,
	gateway PaymentGateway,
	notifier EmailNotifier,
	defaultCurrency string,
) *PaymentIntentOrchestrator {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &PaymentIntentOrchestrator{
		verifier:        verifier,
		provisioner:     provisioner,
		lifecycle:       lifecycle,
		policies:        policies,
		bookings:        bookings,
		gateway:         gateway,
		notifier:        notifier,
		defaultCurrency: defaultCurrency,
	}
}

// Initiate runs the full checkout sequence for a request. On a price mismatch
// nothing is persisted and nothing is charged; the mismatch is logged as a
// fraud signal with both amounts.
func (o *PaymentIntentOrchestrator) Initiate(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = o.defaultCurrency
	}

	policy, err := o.policies.Get(req.ProductType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	method := req.PaymentMethod
	if method == "" {
		method = policy.DefaultPaymentMethod
	}
	if !policy.AllowsMethod(method) {
		return nil, ErrPaymentMethodNotAllowed
	}

	verification, err := o.verifier.Verify(ctx, req.TourID, req.Amount, req.Travelers, req.SingleSupplement)
	if err != nil {
		return nil, err
	}
	if !verification.Valid {
		log.Printf("level=warn component=payment_orchestrator msg=\"price mismatch\" tour_id=%s submitted=%d expected=%d adults=%d children=%d",
			req.TourID, req.Amount, verification.ExpectedCents, req.Travelers.Adults, req.Travelers.Children)
		return nil, ErrPriceMismatch
	}

	account, err := o.provisioner.ResolveOrCreate(ctx, req.BookerEmail, req.BookerName)
	if err != nil {
		return nil, err
	}

	booking, err := o.lifecycle.Create(ctx, CreateBookingParams{
		TourID:          req.TourID,
		ProductType:     req.ProductType,
		TotalAmount:     verification.ExpectedCents,
		Currency:        currency,
		PaymentMethod:   method,
		UserID:          account.User.ID,
		BookerName:      req.BookerName,
		BookerEmail:     NormalizeEmail(req.BookerEmail),
		BookerPhone:     req.BookerPhone,
		Travelers:       req.Travelers,
		SelectedDate:    req.SelectedDate,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.CheckoutResult{
		BookingID:     booking.ID,
		AmountCharged: 0,
		Currency:      currency,
		IsNewUser:     account.IsNew,
	}

	if method != domain.PaymentMethodCashOnArrival {
		intent, err := o.createAndLinkIntent(ctx, booking)
		if err != nil {
			return nil, err
		}
		result.PaymentIntentID = intent.ID
		result.ClientSecret = intent.ClientSecret
		result.AmountCharged = intent.Amount
	} else if err := o.notifier.SendBookingConfirmation(ctx, booking); err != nil {
		log.Printf("level=warn component=payment_orchestrator msg=\"confirmation email publish failed\" booking_id=%s err=%v", booking.ID, err)
	}

	if account.IsNew {
		o.sendWelcomeAsync(account, booking.ID)
	}

	return result, nil
}

// RetryIntent creates and links a gateway intent for a booking stranded in
// pending without one, typically after a gateway timeout left the outcome
// unknown.
func (o *PaymentIntentOrchestrator) RetryIntent(ctx context.Context, bookingID uuid.UUID) (*domain.CheckoutResult, error) {
	booking, err := o.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingPending || booking.PaymentIntentID != nil {
		return nil, fmt.Errorf("%w: booking is not awaiting an intent", ErrInvalidTransition)
	}
	if booking.PaymentMethod == domain.PaymentMethodCashOnArrival {
		return nil, fmt.Errorf("%w: cash bookings carry no payment intent", ErrInvalidTransition)
	}

	intent, err := o.createAndLinkIntent(ctx, booking)
	if err != nil {
		return nil, err
	}
	return &domain.CheckoutResult{
		BookingID:       booking.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCharged:   intent.Amount,
		Currency:        booking.Currency,
	}, nil
}

// ReconcileStranded finds bookings stuck in pending without an intent for at
// least olderThan and retries intent creation for each. Failures are logged
// and skipped; the next sweep picks them up again.
func (o *PaymentIntentOrchestrator) ReconcileStranded(ctx context.Context, olderThan time.Duration) (int, error) {
	stranded, err := o.bookings.FindPendingWithoutIntent(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("find stranded bookings: %w", err)
	}

	recovered := 0
	for i := range stranded {
		b := &stranded[i]
		if _, err := o.createAndLinkIntent(ctx, b); err != nil {
			log.Printf("level=warn component=payment_orchestrator msg=\"reconcile intent failed\" booking_id=%s err=%v", b.ID, err)
			continue
		}
		recovered++
	}
	return recovered, nil
}

// createAndLinkIntent charges the booking's upfront amount: the deposit for
// deposit-method bookings, the full total otherwise.
func (o *PaymentIntentOrchestrator) createAndLinkIntent(ctx context.Context, booking *domain.Booking) (*paygate.Intent, error) {
	chargeAmount := booking.TotalAmount
	if booking.PaymentMethod == domain.PaymentMethodDeposit && booking.DepositAmount != nil {
		chargeAmount = *booking.DepositAmount
	}

	intent, err := o.gateway.CreateIntent(ctx, paygate.CreateIntentRequest{
		Amount:      chargeAmount,
		Currency:    booking.Currency,
		Description: fmt.Sprintf("Booking %s (%s)", booking.ID, booking.TourID),
		Metadata: map[string]string{
			"booking_id":   booking.ID.String(),
			"user_id":      booking.UserID.String(),
			"tour_id":      booking.TourID,
			"booker_email": booking.BookerEmail,
			"adults":       strconv.Itoa(booking.Travelers.Adults),
			"children":     strconv.Itoa(booking.Travelers.Children),
		},
	})
	if err != nil {
		return nil, o.classifyGatewayError(booking.ID, err)
	}

	if err := o.lifecycle.LinkPayment(ctx, booking.ID, intent.ID); err != nil {
		// The intent exists but could not be attached; cancel it so the
		// customer is never charged against an unlinked intent.
		if _, cancelErr := o.gateway.CancelIntent(ctx, intent.ID); cancelErr != nil {
			log.Printf("level=error component=payment_orchestrator msg=\"orphaned intent cancel failed\" booking_id=%s intent_id=%s err=%v", booking.ID, intent.ID, cancelErr)
		}
		return nil, err
	}
	return intent, nil
}

// classifyGatewayError separates ambiguous outcomes (timeouts, where the
// intent may exist gateway-side) from genuine declines. The booking stays in
// pending either way.
func (o *PaymentIntentOrchestrator) classifyGatewayError(bookingID uuid.UUID, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		log.Printf("level=error component=payment_orchestrator msg=\"gateway timeout, outcome unknown\" booking_id=%s err=%v", bookingID, err)
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	var gatewayErr *paygate.ErrorResponse
	if errors.As(err, &gatewayErr) {
		return fmt.Errorf("%w: %v", ErrGatewayRejected, err)
	}
	return fmt.Errorf("create payment intent: %w", err)
}

func (o *PaymentIntentOrchestrator) sendWelcomeAsync(account *domain.GuestAccount, bookingID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.notifier.SendGuestWelcome(ctx, account, bookingID); err != nil {
			log.Printf("level=warn component=payment_orchestrator msg=\"welcome email publish failed\" user_id=%s err=%v", account.User.ID, err)
		}
	}()
}

func validateCheckout(req domain.CheckoutRequest) error {
	if strings.TrimSpace(req.TourID) == "" {
		return fmt.Errorf("%w: tour_id required", ErrValidation)
	}
	if !req.ProductType.Valid() {
		return fmt.Errorf("%w: unknown product type %q", ErrValidation, req.ProductType)
	}
	if req.Travelers.Adults < 1 {
		return fmt.Errorf("%w: at least one adult traveler required", ErrValidation)
	}
	if req.Travelers.Children < 0 {
		return fmt.Errorf("%w: children cannot be negative", ErrValidation)
	}
	if NormalizeEmail(req.BookerEmail) == "" || !strings.Contains(req.BookerEmail, "@") {
		return fmt.Errorf("%w: valid booker email required", ErrValidation)
	}
	if strings.TrimSpace(req.BookerName) == "" {
		return fmt.Errorf("%w: booker name required", ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}
