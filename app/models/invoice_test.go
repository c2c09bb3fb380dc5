package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInvoiceMarkPaidFromSent(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusSent, PaymentStatus: PaymentStatusPending, Amount: decimal.NewFromInt(500)}
	now := time.Now()

	if err := inv.MarkPaid("pi_123", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusPaid || inv.PaymentStatus != PaymentStatusSucceeded {
		t.Fatalf("unexpected state: status=%q payment_status=%q", inv.Status, inv.PaymentStatus)
	}
	if inv.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}
	if inv.StripePaymentIntentID != "pi_123" {
		t.Fatalf("expected intent id to be recorded, got %q", inv.StripePaymentIntentID)
	}
}

func TestInvoiceMarkPaidTwice(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusSent}
	if err := inv.MarkPaid("pi_123", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstPaidAt := *inv.PaidAt

	err := inv.MarkPaid("pi_456", time.Now())
	if !errors.Is(err, ErrInvoiceAlreadyPaid) {
		t.Fatalf("expected ErrInvoiceAlreadyPaid, got %v", err)
	}
	if inv.StripePaymentIntentID != "pi_123" || !inv.PaidAt.Equal(firstPaidAt) {
		t.Fatalf("second MarkPaid must not mutate the invoice")
	}
}

func TestInvoiceMarkRefundedRequiresPaid(t *testing.T) {
	for _, status := range []string{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusCancelled} {
		inv := &Invoice{Status: status}
		if err := inv.MarkRefunded(); !errors.Is(err, ErrInvoiceTransition) {
			t.Fatalf("expected transition error for %s -> refunded, got %v", status, err)
		}
	}

	inv := &Invoice{Status: InvoiceStatusPaid, PaymentStatus: PaymentStatusSucceeded}
	if err := inv.MarkRefunded(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusRefunded || inv.PaymentStatus != PaymentStatusRefunded {
		t.Fatalf("unexpected state after refund: %q/%q", inv.Status, inv.PaymentStatus)
	}
	// Refunding twice is a no-op.
	if err := inv.MarkRefunded(); err != nil {
		t.Fatalf("refund should be idempotent, got %v", err)
	}
}

func TestInvoiceMarkPaymentFailedNeverRegressesSuccess(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusPaid, PaymentStatus: PaymentStatusSucceeded}
	if err := inv.MarkPaymentFailed(); !errors.Is(err, ErrInvoiceTransition) {
		t.Fatalf("expected transition error, got %v", err)
	}
	if inv.PaymentStatus != PaymentStatusSucceeded {
		t.Fatalf("payment_status must stay succeeded, got %q", inv.PaymentStatus)
	}

	open := &Invoice{Status: InvoiceStatusSent, PaymentStatus: PaymentStatusPending}
	if err := open.MarkPaymentFailed(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open.Status != InvoiceStatusSent {
		t.Fatalf("a failed attempt must not cancel the invoice, got status %q", open.Status)
	}
}

func TestInvoiceMarkSent(t *testing.T) {
	inv := &Invoice{Status: InvoiceStatusDraft}
	if err := inv.MarkSent("https://checkout.example/cs_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != InvoiceStatusSent || inv.StripePaymentLink == "" {
		t.Fatalf("unexpected state: %q link=%q", inv.Status, inv.StripePaymentLink)
	}

	paid := &Invoice{Status: InvoiceStatusPaid}
	if err := paid.MarkSent("x"); !errors.Is(err, ErrInvoiceTransition) {
		t.Fatalf("expected transition error, got %v", err)
	}
}
