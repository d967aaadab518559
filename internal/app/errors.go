package app

import "errors"

// Business errors surfaced by the booking core. The API layer maps these to
// HTTP statuses; customer-facing responses never leak internal price detail,
// while admin callers get the specific reason.
var (
	// ErrPriceMismatch means the client-submitted amount disagrees with the
	// canonical computation. Treated as a potential-fraud signal, never as a
	// customer error.
	ErrPriceMismatch = errors.New("submitted amount does not match canonical price")

	// ErrInvalidTransition is a state-machine guard violation.
	ErrInvalidTransition = errors.New("invalid booking state transition")

	// ErrBookingUnpaid means an approval was attempted on a booking whose
	// payment has not succeeded.
	ErrBookingUnpaid = errors.New("cannot approve an unpaid booking")

	// ErrReasonRequired means a rejection was attempted without a reason.
	ErrReasonRequired = errors.New("rejection requires a non-empty reason")

	// ErrPaymentMethodNotAllowed means the requested payment method is not
	// permitted for the product type.
	ErrPaymentMethodNotAllowed = errors.New("payment method not allowed for product type")

	// ErrGatewayTimeout is an ambiguous gateway outcome, not a failure. The
	// booking stays pending so reconciliation can query the true status.
	ErrGatewayTimeout = errors.New("payment gateway timed out")

	// ErrGatewayRejected is a genuine decline from the payment gateway.
	ErrGatewayRejected = errors.New("payment gateway rejected the intent")

	// ErrEventConflict means a webhook's intent id and its embedded booking id
	// resolve to different bookings.
	ErrEventConflict = errors.New("payment event references conflicting bookings")

	// ErrValidation covers malformed checkout input.
	ErrValidation = errors.New("invalid booking request")
)
