package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Stripe event types handled by the dispatcher.
const (
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
	EventCheckoutCompleted = "checkout.session.completed"
)

// Event is a verified provider notification. Payload holds the raw JSON of
// the provider object (payment intent, charge or checkout session).
type Event struct {
	ID         string
	Type       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// AuthenticationError marks a delivery whose signature could not be verified
// against the raw body. Never retried: the same bad signature would fail the
// same way.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("webhook authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ValidationError marks a permanently unprocessable event: malformed payload
// or no resolvable invoice correlation key. Handlers log it for manual audit
// and acknowledge so the provider stops redelivering.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("event validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransientError marks a failure that a later redelivery may succeed on,
// typically storage being unavailable mid-transaction. Surfaced as a 500 so
// the provider retries with its own backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should trigger a provider retry.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsAuthentication reports whether err is a signature/authentication failure.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
