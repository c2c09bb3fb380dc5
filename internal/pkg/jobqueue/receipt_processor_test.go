package jobqueue

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voltagency/voltsite/app/models"
)

func setupQueueDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.Invoice{}))
	return db
}

func TestReceiptProcessorDropsMalformedJob(t *testing.T) {
	p := NewReceiptProcessor(setupQueueDB(t))

	job := &Job{ID: "job-1", Type: JobTypePaymentReceipt, Payload: map[string]string{}}
	assert.NoError(t, p.Process(context.Background(), job), "retrying a job without an invoice id cannot help")
}

func TestReceiptProcessorDropsVanishedInvoice(t *testing.T) {
	p := NewReceiptProcessor(setupQueueDB(t))

	job := &Job{ID: "job-1", Type: JobTypePaymentReceipt, Payload: PaymentReceiptPayload{InvoiceID: "gone"}.ToMap()}
	assert.NoError(t, p.Process(context.Background(), job))
}

func TestReceiptProcessorSkipsUnpaidInvoice(t *testing.T) {
	db := setupQueueDB(t)

	inv := &models.Invoice{
		InvoiceNumber: "VOLT-2026-0001",
		ProjectID:     "p-1",
		ClientID:      "c-1",
		Amount:        decimal.NewFromInt(1000),
		Status:        models.InvoiceStatusSent,
	}
	require.NoError(t, db.Create(inv).Error)

	p := NewReceiptProcessor(db)
	job := &Job{ID: "job-1", Type: JobTypePaymentReceipt, Payload: PaymentReceiptPayload{InvoiceID: inv.ID}.ToMap()}
	assert.NoError(t, p.Process(context.Background(), job), "no receipt before the invoice is reconciled")
}

func TestPaymentReceiptPayloadToMap(t *testing.T) {
	m := PaymentReceiptPayload{InvoiceID: "inv-1"}.ToMap()
	assert.Equal(t, map[string]string{"invoice_id": "inv-1"}, m)
}
