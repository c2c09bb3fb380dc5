package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/voltagency/voltsite/app/models"
	"gorm.io/gorm"
)

// ReceiptNotifier enqueues a post-commit notification for a paid invoice.
// It must be cheap: it runs after the transaction, inside the webhook
// response budget.
type ReceiptNotifier interface {
	EnqueuePaymentReceipt(invoiceID string) error
}

// Engine applies verified provider events to the invoice, payment ledger and
// project financial state as one atomic, idempotent operation per event.
type Engine struct {
	repo     Repository
	notifier ReceiptNotifier
}

// NewEngine creates a reconciliation engine. notifier may be nil.
func NewEngine(repo Repository, notifier ReceiptNotifier) *Engine {
	return &Engine{repo: repo, notifier: notifier}
}

// NewEngineFromDB creates an engine from a GORM DB handle.
func NewEngineFromDB(db *gorm.DB, notifier ReceiptNotifier) *Engine {
	return NewEngine(NewRepository(db), notifier)
}

// ApplyPaymentSucceeded reconciles a payment_intent.succeeded event. The
// invoice id embedded in the intent metadata at link issuance is the sole
// correlation mechanism; an event without it is permanently unassociatable
// and only logged. Duplicate deliveries are detected by the payment intent
// id and acknowledged as no-ops.
func (e *Engine) ApplyPaymentSucceeded(ctx context.Context, ev *Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Payload, &pi); err != nil {
		log.Errorf("[Payments] event=%s: payment intent payload unreadable, skipping: %v", ev.ID, err)
		return nil
	}

	invoiceID := pi.Metadata["invoice_id"]
	if invoiceID == "" {
		log.Errorf("[Payments] event=%s intent=%s: no invoice_id in metadata, manual reconciliation required", ev.ID, pi.ID)
		return nil
	}

	applied := false
	err := e.repo.Transaction(func(tx Repository) error {
		if _, err := tx.GetPaymentByIntentID(pi.ID); err == nil {
			log.Infof("[Payments] event=%s invoice=%s intent=%s: duplicate delivery, already recorded", ev.ID, invoiceID, pi.ID)
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return &TransientError{Op: "payment lookup", Err: err}
		}

		inv, err := tx.GetInvoiceByID(invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Payments] event=%s intent=%s: invoice %s not found, manual reconciliation required", ev.ID, pi.ID, invoiceID)
				return nil
			}
			return &TransientError{Op: "invoice lookup", Err: err}
		}

		expectedVersion := inv.Version
		if err := inv.MarkPaid(pi.ID, ev.ReceivedAt); err != nil {
			if errors.Is(err, models.ErrInvoiceAlreadyPaid) {
				log.Infof("[Payments] event=%s invoice=%s: already paid, no-op", ev.ID, inv.ID)
				return nil
			}
			log.Errorf("[Payments] event=%s invoice=%s: %v, skipping", ev.ID, inv.ID, err)
			return nil
		}
		if err := tx.UpdateInvoice(inv, expectedVersion); err != nil {
			return &TransientError{Op: "invoice update", Err: err}
		}

		if _, err := tx.CreatePaymentIfNotExists(paymentFromIntent(inv, &pi)); err != nil {
			return &TransientError{Op: "payment insert", Err: err}
		}

		if err := e.applyProjectFinancials(tx, ev, inv); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return err
	}

	if applied && e.notifier != nil {
		// Outside the transaction: a queue hiccup must not fail (or retry)
		// an already committed reconciliation.
		if nerr := e.notifier.EnqueuePaymentReceipt(invoiceID); nerr != nil {
			log.Warnf("[Payments] event=%s invoice=%s: receipt notification not enqueued: %v", ev.ID, invoiceID, nerr)
		}
	}
	return nil
}

func (e *Engine) applyProjectFinancials(tx Repository, ev *Event, inv *models.Invoice) error {
	if inv.ProjectID == "" {
		return nil
	}

	var updates map[string]interface{}
	switch ClassifyInvoiceKind(inv) {
	case KindDeposit:
		updates = map[string]interface{}{
			"deposit_paid":   true,
			"deposit_amount": inv.Amount,
		}
	case KindFinal:
		updates = map[string]interface{}{
			"final_payment_paid":   true,
			"final_payment_amount": inv.Amount,
		}
	default:
		log.Warnf("[Payments] event=%s invoice=%s: kind not classifiable, project %s flags left for manual review", ev.ID, inv.ID, inv.ProjectID)
		return nil
	}

	if err := tx.UpdateProjectFinancials(inv.ProjectID, updates); err != nil {
		return &TransientError{Op: "project update", Err: err}
	}
	return nil
}

// ApplyPaymentFailed idempotently records a failed attempt. The invoice
// status is untouched: a failed attempt does not cancel the invoice and the
// client may retry through the same link.
func (e *Engine) ApplyPaymentFailed(ctx context.Context, ev *Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Payload, &pi); err != nil {
		log.Errorf("[Payments] event=%s: payment intent payload unreadable, skipping: %v", ev.ID, err)
		return nil
	}

	invoiceID := pi.Metadata["invoice_id"]
	if invoiceID == "" {
		log.Errorf("[Payments] event=%s intent=%s: failed payment without invoice_id metadata", ev.ID, pi.ID)
		return nil
	}

	return e.repo.Transaction(func(tx Repository) error {
		inv, err := tx.GetInvoiceByID(invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Payments] event=%s intent=%s: invoice %s not found", ev.ID, pi.ID, invoiceID)
				return nil
			}
			return &TransientError{Op: "invoice lookup", Err: err}
		}

		if inv.PaymentStatus == models.PaymentStatusFailed {
			return nil
		}
		expectedVersion := inv.Version
		if err := inv.MarkPaymentFailed(); err != nil {
			// A success already landed; a late failure event never regresses it.
			log.Infof("[Payments] event=%s invoice=%s: %v, no-op", ev.ID, inv.ID, err)
			return nil
		}
		if err := tx.UpdateInvoice(inv, expectedVersion); err != nil {
			return &TransientError{Op: "invoice update", Err: err}
		}
		log.Infof("[Payments] event=%s invoice=%s: payment attempt failed", ev.ID, inv.ID)
		return nil
	})
}

// ApplyRefund resolves the invoice through the payment intent id recorded at
// success time. A refund for an intent this system never recorded is a data
// inconsistency: logged and acknowledged without touching any state.
func (e *Engine) ApplyRefund(ctx context.Context, ev *Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(ev.Payload, &charge); err != nil {
		log.Errorf("[Payments] event=%s: charge payload unreadable, skipping: %v", ev.ID, err)
		return nil
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		log.Errorf("[Payments] event=%s charge=%s: refund without payment intent reference", ev.ID, charge.ID)
		return nil
	}
	intentID := charge.PaymentIntent.ID

	return e.repo.Transaction(func(tx Repository) error {
		inv, err := tx.GetInvoiceByPaymentIntentID(intentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Payments] event=%s intent=%s: refund for unknown payment intent, no invoice mutated", ev.ID, intentID)
				return nil
			}
			return &TransientError{Op: "invoice lookup", Err: err}
		}

		if inv.Status == models.InvoiceStatusRefunded {
			return nil
		}
		expectedVersion := inv.Version
		if err := inv.MarkRefunded(); err != nil {
			log.Errorf("[Payments] event=%s invoice=%s: %v, skipping", ev.ID, inv.ID, err)
			return nil
		}
		if err := tx.UpdateInvoice(inv, expectedVersion); err != nil {
			return &TransientError{Op: "invoice update", Err: err}
		}
		log.Infof("[Payments] event=%s invoice=%s: refunded", ev.ID, inv.ID)
		return nil
	})
}

// ApplyCheckoutCompleted is a reserved contract point for an alternate
// checkout flow. Deliberate no-op.
func (e *Engine) ApplyCheckoutCompleted(ctx context.Context, ev *Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(ev.Payload, &session); err != nil {
		log.Errorf("[Payments] event=%s: checkout session payload unreadable: %v", ev.ID, err)
		return nil
	}
	log.Infof("[Payments] event=%s: checkout session %s completed, handled via payment_intent events", ev.ID, session.ID)
	return nil
}

func paymentFromIntent(inv *models.Invoice, pi *stripe.PaymentIntent) *models.Payment {
	chargeID := ""
	if pi.LatestCharge != nil {
		chargeID = pi.LatestCharge.ID
	}
	method := ""
	if len(pi.PaymentMethodTypes) > 0 {
		method = pi.PaymentMethodTypes[0]
	}
	metadataJSON := ""
	if len(pi.Metadata) > 0 {
		if b, err := json.Marshal(pi.Metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	return &models.Payment{
		InvoiceID: inv.ID,
		// Stripe reports integer minor units; the ledger keeps major units.
		Amount:                decimal.NewFromInt(pi.Amount).Div(decimal.NewFromInt(100)),
		StripePaymentIntentID: pi.ID,
		StripeChargeID:        chargeID,
		PaymentMethod:         method,
		Status:                models.PaymentStatusSucceeded,
		MetadataJSON:          metadataJSON,
		CreatedAt:             time.Now(),
	}
}
