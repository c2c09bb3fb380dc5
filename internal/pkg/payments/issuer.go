package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/voltagency/voltsite/app/models"
	"github.com/voltagency/voltsite/internal/pkg/env"
	"gorm.io/gorm"
)

var minorUnitFactor = decimal.NewFromInt(100)

// Issuer creates Stripe Checkout Sessions for invoices. The invoice id and
// number embedded in the session and payment intent metadata are the only
// join key the reconciliation engine has for later webhook events; an
// invoice issued without them can never be reconciled automatically.
type Issuer struct {
	repo    Repository
	stripe  *client.API
	siteURL string
}

// NewIssuer creates an issuer with an explicit Stripe client, used by tests
// to point the API backend at a local server.
func NewIssuer(repo Repository, sc *client.API, siteURL string) *Issuer {
	return &Issuer{repo: repo, stripe: sc, siteURL: strings.TrimRight(siteURL, "/")}
}

// NewIssuerFromEnv creates an issuer configured from the environment.
func NewIssuerFromEnv(db *gorm.DB) (*Issuer, error) {
	key := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	if key == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	siteURL := strings.TrimSpace(env.GetEnv("PUBLIC_SITE_URL", ""))
	if siteURL == "" {
		return nil, errors.New("PUBLIC_SITE_URL is not configured")
	}

	sc := &client.API{}
	sc.Init(key, nil)
	return NewIssuer(NewRepository(db), sc, siteURL), nil
}

// IssuePaymentLink creates the provider checkout resource for the invoice
// and transitions it draft -> sent with the returned link. On provider
// failure nothing is persisted and the invoice stays draft; retrying
// issuance is the caller's concern.
func (i *Issuer) IssuePaymentLink(ctx context.Context, inv *models.Invoice, clientEmail, description string) (string, error) {
	if inv.Status != models.InvoiceStatusDraft && inv.Status != models.InvoiceStatusSent {
		return "", fmt.Errorf("%w: cannot issue link for %s invoice", models.ErrInvoiceTransition, inv.Status)
	}

	minorUnits := inv.Amount.Mul(minorUnitFactor).Round(0).IntPart()
	metadata := map[string]string{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(clientEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyEUR)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Facture " + inv.InvoiceNumber),
						Description: stripe.String(description),
					},
					UnitAmount: stripe.Int64(minorUnits),
				},
				Quantity: stripe.Int64(1),
			},
		},
		// Metadata must land on the payment intent as well: succeeded/failed
		// webhooks carry the intent, not the session.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		SuccessURL: stripe.String(i.siteURL + "/payment/success?invoice=" + inv.ID),
		CancelURL:  stripe.String(i.siteURL + "/dashboard/clients/invoices"),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	session, err := i.stripe.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session creation failed: %w", err)
	}
	if session.URL == "" {
		return "", errors.New("stripe returned a checkout session without a URL")
	}

	expectedVersion := inv.Version
	if err := inv.MarkSent(session.URL); err != nil {
		return "", err
	}
	if err := i.repo.UpdateInvoice(inv, expectedVersion); err != nil {
		return "", &TransientError{Op: "invoice update after issuance", Err: err}
	}

	log.Infof("[Payments] invoice=%s number=%s: payment link issued (session=%s)", inv.ID, inv.InvoiceNumber, session.ID)
	return session.URL, nil
}

// NewStripeClientForBackend builds a stripe client against a custom backend
// URL. Test helper surface; production wiring uses NewIssuerFromEnv.
func NewStripeClientForBackend(key, backendURL string, httpClient *http.Client) *client.API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:        stripe.String(backendURL),
		HTTPClient: httpClient,
	})
	sc := &client.API{}
	sc.Init(key, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return sc
}
