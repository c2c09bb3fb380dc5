package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only ledger entry for one payment attempt outcome.
// Rows are created only by the reconciliation engine and never updated. The
// composite unique index guarantees at most one row per (invoice, provider
// payment intent), so a redelivered webhook can never insert a duplicate.
type Payment struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	InvoiceID             string          `gorm:"type:char(36);not null;index:ux_payments_invoice_intent,unique,priority:1" json:"invoice_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	StripePaymentIntentID string          `gorm:"type:varchar(191);not null;index:ux_payments_invoice_intent,unique,priority:2;index" json:"stripe_payment_intent_id"`
	StripeChargeID        string          `gorm:"type:varchar(191)" json:"stripe_charge_id"`
	PaymentMethod         string          `gorm:"type:varchar(32)" json:"payment_method"`
	Status                string          `gorm:"type:varchar(16);not null" json:"status"`
	MetadataJSON          string          `gorm:"type:text" json:"metadata_json"`
	CreatedAt             time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
