package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltagency/voltsite/app/models"
)

func newFakeStripe(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *url.Values) {
	t.Helper()

	var lastForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		lastForm = r.PostForm
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &lastForm
}

func TestIssuePaymentLink(t *testing.T) {
	db := setupTestDB(t)
	_, inv := seedBilling(t, db, func(i *models.Invoice) {
		i.Status = models.InvoiceStatusDraft
		i.Kind = models.InvoiceKindDeposit
	})

	srv, form := newFakeStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	issuer := NewIssuer(NewRepository(db), NewStripeClientForBackend("sk_test_x", srv.URL, srv.Client()), "https://voltagency.example/")
	link, err := issuer.IssuePaymentLink(context.Background(), inv, "client@example.test", "Acompte - Refonte site vitrine")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", link)

	// The correlation key must ride on the payment intent, since succeeded
	// and failed webhooks carry the intent rather than the session.
	assert.Equal(t, inv.ID, form.Get("payment_intent_data[metadata][invoice_id]"))
	assert.Equal(t, inv.InvoiceNumber, form.Get("payment_intent_data[metadata][invoice_number]"))
	assert.Equal(t, inv.ID, form.Get("metadata[invoice_id]"))
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "100000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "eur", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "https://voltagency.example/payment/success?invoice="+inv.ID, form.Get("success_url"))

	var got models.Invoice
	require.NoError(t, db.First(&got, "id = ?", inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusSent, got.Status)
	assert.Equal(t, link, got.StripePaymentLink)
	assert.Equal(t, 1, got.Version)
}

func TestIssuePaymentLinkProviderFailure(t *testing.T) {
	db := setupTestDB(t)
	_, inv := seedBilling(t, db, func(i *models.Invoice) {
		i.Status = models.InvoiceStatusDraft
	})

	srv, _ := newFakeStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"amount too small"}}`))
	})

	issuer := NewIssuer(NewRepository(db), NewStripeClientForBackend("sk_test_x", srv.URL, srv.Client()), "https://voltagency.example")
	_, err := issuer.IssuePaymentLink(context.Background(), inv, "client@example.test", "Acompte")
	require.Error(t, err)

	// Nothing persisted: the invoice stays draft and can be re-issued.
	var got models.Invoice
	require.NoError(t, db.First(&got, "id = ?", inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)
	assert.Empty(t, got.StripePaymentLink)
	assert.Equal(t, 0, got.Version)
}

func TestIssuePaymentLinkRefusesPaidInvoice(t *testing.T) {
	db := setupTestDB(t)
	_, inv := seedBilling(t, db, func(i *models.Invoice) {
		i.Status = models.InvoiceStatusPaid
	})

	issuer := NewIssuer(NewRepository(db), nil, "https://voltagency.example")
	_, err := issuer.IssuePaymentLink(context.Background(), inv, "client@example.test", "Acompte")
	assert.ErrorIs(t, err, models.ErrInvoiceTransition)
}
