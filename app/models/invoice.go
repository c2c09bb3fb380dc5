package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice lifecycle states. Status only moves forward; the single backward
// edge is paid -> refunded.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
	InvoiceStatusRefunded  = "refunded"
)

// Payment sub-state, independent of Status.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Invoice kinds. Kind is set at creation time; the notes keyword scan in the
// payments package only covers legacy rows created before this column existed.
const (
	InvoiceKindDeposit = "deposit"
	InvoiceKindFinal   = "final"
	InvoiceKindOther   = "other"
)

var (
	ErrInvoiceTransition  = errors.New("invalid invoice state transition")
	ErrInvoiceAlreadyPaid = errors.New("invoice is already paid")
)

// Invoice is the billable record for a deposit, final payment or full payment
// tied to one project. After it is paid it becomes immutable except for the
// refund edge.
type Invoice struct {
	ID                    string          `gorm:"type:char(36);primaryKey" json:"id"`
	InvoiceNumber         string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"invoice_number"`
	ProjectID             string          `gorm:"type:char(36);not null;index" json:"project_id"`
	ClientID              string          `gorm:"type:char(36);not null;index" json:"client_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Kind                  string          `gorm:"type:varchar(16);not null;default:''" json:"kind"`
	Status                string          `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	PaymentStatus         string          `gorm:"type:varchar(16);not null;default:'pending'" json:"payment_status"`
	StripePaymentLink     string          `gorm:"type:text" json:"stripe_payment_link"`
	StripePaymentIntentID string          `gorm:"type:varchar(191);index" json:"stripe_payment_intent_id"`
	DueDate               *time.Time      `gorm:"type:timestamp;default:null" json:"due_date,omitempty"`
	PaidAt                *time.Time      `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	Notes                 string          `gorm:"type:text" json:"notes"`
	Version               int             `gorm:"not null;default:0" json:"version"`
	CreatedAt             time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = InvoiceStatusDraft
	}
	if i.PaymentStatus == "" {
		i.PaymentStatus = PaymentStatusPending
	}
	return nil
}

// MarkSent records the issued payment link and moves the invoice from draft
// to sent. Re-issuing a link for an invoice that is already sent only updates
// the link.
func (i *Invoice) MarkSent(paymentLink string) error {
	switch i.Status {
	case InvoiceStatusDraft, InvoiceStatusSent:
		i.Status = InvoiceStatusSent
		i.StripePaymentLink = paymentLink
		return nil
	default:
		return fmt.Errorf("%w: %s -> sent", ErrInvoiceTransition, i.Status)
	}
}

// MarkPaid transitions the invoice to paid and records the provider payment
// intent. PaidAt is set exactly once, together with the status change.
func (i *Invoice) MarkPaid(paymentIntentID string, now time.Time) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusRefunded {
		return ErrInvoiceAlreadyPaid
	}
	if i.Status != InvoiceStatusSent && i.Status != InvoiceStatusDraft {
		return fmt.Errorf("%w: %s -> paid", ErrInvoiceTransition, i.Status)
	}
	i.Status = InvoiceStatusPaid
	i.PaymentStatus = PaymentStatusSucceeded
	i.StripePaymentIntentID = paymentIntentID
	paidAt := now.UTC()
	i.PaidAt = &paidAt
	return nil
}

// MarkPaymentFailed records a failed payment attempt. Status is left
// untouched so the client can retry; a success that already landed is never
// regressed by a late failure event.
func (i *Invoice) MarkPaymentFailed() error {
	if i.PaymentStatus == PaymentStatusSucceeded || i.PaymentStatus == PaymentStatusRefunded {
		return fmt.Errorf("%w: payment_status %s -> failed", ErrInvoiceTransition, i.PaymentStatus)
	}
	i.PaymentStatus = PaymentStatusFailed
	return nil
}

// MarkRefunded moves a paid invoice to refunded.
func (i *Invoice) MarkRefunded() error {
	if i.Status == InvoiceStatusRefunded {
		return nil
	}
	if i.Status != InvoiceStatusPaid {
		return fmt.Errorf("%w: %s -> refunded", ErrInvoiceTransition, i.Status)
	}
	i.Status = InvoiceStatusRefunded
	i.PaymentStatus = PaymentStatusRefunded
	return nil
}
