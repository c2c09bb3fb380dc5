package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/voltagency/voltsite/app/models"
	"github.com/voltagency/voltsite/internal/pkg/database"
	"github.com/voltagency/voltsite/internal/pkg/env"
	"github.com/voltagency/voltsite/internal/pkg/payments"
)

// receiptNotifier is wired at startup; nil means receipts are skipped
// (tests, or a deployment without the queue).
var receiptNotifier payments.ReceiptNotifier

// SetReceiptNotifier installs the post-commit notification hook used by the
// reconciliation engine.
func SetReceiptNotifier(n payments.ReceiptNotifier) {
	receiptNotifier = n
}

// HandleStripeWebhook is the single ingress for provider events. Contract:
// 200 for processed or intentionally ignored deliveries, 400 for signature
// failures, 500 for transient processing failures (Stripe redelivers with
// backoff on non-2xx).
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	ev, err := payments.VerifyAndParse(rawBody, signature, secret, time.Now())
	if err != nil {
		if payments.IsAuthentication(err) {
			log.Warnf("[Webhook] rejected delivery: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		// Authenticated but unparsable: permanent, acknowledge to stop
		// redelivery and keep the log line for manual audit.
		log.Errorf("[Webhook] unprocessable delivery: %v", err)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	repo := payments.NewRepository(database.GetDB())
	created, stored, err := repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Errorf("[Webhook] event=%s: persist failed: %v", ev.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		// Same event id already applied; the engine would no-op anyway, skip
		// the transaction entirely.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dispatcher := payments.NewDispatcherFromDB(database.GetDB(), receiptNotifier)
	dispatchErr := dispatcher.Dispatch(ctx, ev)

	errMsg := ""
	if dispatchErr != nil {
		errMsg = dispatchErr.Error()
	}
	if err := repo.MarkWebhookProcessed(stored.ID, errMsg); err != nil {
		log.Errorf("[Webhook] event=%s: could not mark processed: %v", ev.ID, err)
	}

	if dispatchErr != nil {
		log.Errorf("[Webhook] event=%s type=%s: %v", ev.ID, ev.Type, dispatchErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
