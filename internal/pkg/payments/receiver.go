package payments

import (
	"errors"
	"time"

	"github.com/stripe/stripe-go/v74/webhook"
)

// SignatureTolerance is the allowed skew between the timestamp embedded in
// the Stripe-Signature header and the receive time.
const SignatureTolerance = 5 * time.Minute

// VerifyAndParse authenticates a raw webhook delivery and parses it into a
// typed Event. Verification runs against the exact bytes Stripe signed; the
// body is never interpreted before the signature checks out. A signature or
// timestamp failure yields an AuthenticationError, a signed but unparsable
// body a ValidationError.
func VerifyAndParse(payload []byte, signatureHeader, secret string, receivedAt time.Time) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithTolerance(payload, signatureHeader, secret, SignatureTolerance)
	if err != nil {
		if isSignatureError(err) {
			return nil, &AuthenticationError{Reason: "signature verification", Err: err}
		}
		// Signature was valid but the body is not a Stripe event envelope.
		return nil, &ValidationError{Reason: "malformed event payload", Err: err}
	}

	return &Event{
		ID:         stripeEvent.ID,
		Type:       string(stripeEvent.Type),
		Payload:    stripeEvent.Data.Raw,
		ReceivedAt: receivedAt,
	}, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
