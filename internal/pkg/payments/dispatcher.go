package payments

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Dispatcher routes a verified event to the matching engine operation.
// Unrecognized event types are acknowledged without retry: Stripe keeps
// redelivering anything we answer non-2xx, and there is nothing to gain from
// redelivering an event this system does not understand.
type Dispatcher struct {
	engine *Engine
}

func NewDispatcher(engine *Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// NewDispatcherFromDB wires a dispatcher with a DB-backed engine.
func NewDispatcherFromDB(db *gorm.DB, notifier ReceiptNotifier) *Dispatcher {
	return NewDispatcher(NewEngineFromDB(db, notifier))
}

// Dispatch applies ev. A nil return means the delivery is settled (applied,
// duplicate, or permanently unprocessable and logged); a TransientError
// means the caller should answer 500 so the provider redelivers.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventPaymentSucceeded:
		return d.engine.ApplyPaymentSucceeded(ctx, ev)
	case EventPaymentFailed:
		return d.engine.ApplyPaymentFailed(ctx, ev)
	case EventChargeRefunded:
		return d.engine.ApplyRefund(ctx, ev)
	case EventCheckoutCompleted:
		return d.engine.ApplyCheckoutCompleted(ctx, ev)
	default:
		log.Infof("[Payments] event=%s: unhandled event type %q, acknowledged", ev.ID, ev.Type)
		return nil
	}
}
