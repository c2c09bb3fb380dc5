package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/voltagency/voltsite/app/models"
	"github.com/voltagency/voltsite/internal/pkg/mail"
	"gorm.io/gorm"
)

// ReceiptProcessor emails a payment receipt for a reconciled invoice.
// Runs strictly after the reconciliation transaction committed.
type ReceiptProcessor struct {
	db *gorm.DB
}

func NewReceiptProcessor(db *gorm.DB) *ReceiptProcessor {
	return &ReceiptProcessor{db: db}
}

func (p *ReceiptProcessor) Process(ctx context.Context, job *Job) error {
	invoiceID := job.Payload["invoice_id"]
	if invoiceID == "" {
		// Malformed job, retrying cannot help.
		log.Errorf("[JobQueue] Job %s: receipt job without invoice_id", job.ID)
		return nil
	}

	var inv models.Invoice
	if err := p.db.WithContext(ctx).Where("id = ?", invoiceID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[JobQueue] Job %s: invoice %s vanished, dropping receipt", job.ID, invoiceID)
			return nil
		}
		return err
	}
	if inv.Status != models.InvoiceStatusPaid {
		log.Warnf("[JobQueue] Job %s: invoice %s is %s, not sending receipt", job.ID, invoiceID, inv.Status)
		return nil
	}

	var client models.Profile
	if err := p.db.WithContext(ctx).Where("id = ?", inv.ClientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[JobQueue] Job %s: no profile for client %s", job.ID, inv.ClientID)
			return nil
		}
		return err
	}

	subject := fmt.Sprintf("Reçu de paiement - Facture %s", inv.InvoiceNumber)
	body := fmt.Sprintf(
		"<p>Bonjour %s,</p><p>Nous confirmons la réception de votre paiement de %s € pour la facture <strong>%s</strong>.</p><p>Merci de votre confiance.</p>",
		client.FullName, inv.Amount.StringFixed(2), inv.InvoiceNumber,
	)
	return mail.SendMail(client.Email, subject, body)
}

// ReceiptNotifier adapts the queue to the engine's notification hook.
type ReceiptNotifier struct {
	queue *Queue
}

func NewReceiptNotifier(queue *Queue) *ReceiptNotifier {
	return &ReceiptNotifier{queue: queue}
}

func (n *ReceiptNotifier) EnqueuePaymentReceipt(invoiceID string) error {
	_, err := n.queue.Enqueue(JobTypePaymentReceipt, PaymentReceiptPayload{InvoiceID: invoiceID}.ToMap())
	return err
}
