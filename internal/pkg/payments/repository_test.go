package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltagency/voltsite/app/models"
)

func TestUpdateInvoiceDetectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	_, inv := seedBilling(t, db, nil)
	repo := NewRepository(db)

	stale, err := repo.GetInvoiceByID(inv.ID)
	require.NoError(t, err)

	// First writer wins.
	require.NoError(t, inv.MarkPaid("pi_1", time.Now()))
	require.NoError(t, repo.UpdateInvoice(inv, 0))

	// Second writer still holds version 0.
	require.NoError(t, stale.MarkPaid("pi_2", time.Now()))
	err = repo.UpdateInvoice(stale, 0)
	assert.ErrorIs(t, err, ErrStaleInvoice)

	got, err := repo.GetInvoiceByID(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", got.StripePaymentIntentID)
	assert.Equal(t, 1, got.Version)
}

func TestCreatePaymentIfNotExists(t *testing.T) {
	db := setupTestDB(t)
	_, inv := seedBilling(t, db, nil)
	repo := NewRepository(db)

	p := &models.Payment{
		InvoiceID:             inv.ID,
		Amount:                decimal.NewFromInt(1000),
		StripePaymentIntentID: "pi_1",
		Status:                models.PaymentStatusSucceeded,
	}
	created, err := repo.CreatePaymentIfNotExists(p)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.Payment{
		InvoiceID:             inv.ID,
		Amount:                decimal.NewFromInt(1000),
		StripePaymentIntentID: "pi_1",
		Status:                models.PaymentStatusSucceeded,
	}
	created, err = repo.CreatePaymentIfNotExists(dup)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateWebhookEventIfNotExists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	created, stored, err := repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       EventPaymentSucceeded,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, stored.ProcessedAt)

	require.NoError(t, repo.MarkWebhookProcessed(stored.ID, ""))

	created, stored, err = repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       EventPaymentSucceeded,
	})
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}
