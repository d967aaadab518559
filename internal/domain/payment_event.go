package domain

import "encoding/json"

// Webhook event types this service acts on. Unknown types are acknowledged
// without side effects.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentEvent is the inbound webhook envelope from the payment gateway.
type PaymentEvent struct {
	Type string           `json:"type"`
	Data PaymentEventData `json:"data"`
}

// PaymentEventData wraps the event object, mirroring the gateway's envelope.
type PaymentEventData struct {
	Object PaymentIntentObject `json:"object"`
}

// PaymentIntentObject is the payment intent as reported by the gateway.
// Metadata carries enough context (booking id, user id, tour id) that an
// event received with no other context can be reconstructed.
type PaymentIntentObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// ParsePaymentEvent decodes a raw webhook body.
func ParsePaymentEvent(body []byte) (*PaymentEvent, error) {
	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
