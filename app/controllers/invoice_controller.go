package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voltagency/voltsite/app/models"
	"github.com/voltagency/voltsite/app/repository"
	"github.com/voltagency/voltsite/internal/pkg/database"
	"github.com/voltagency/voltsite/internal/pkg/payments"
)

var validate = validator.New()

// linkIssuerFactory builds the payment link issuer. Tests swap it to point
// at a fake Stripe backend.
var linkIssuerFactory = func(db *gorm.DB) (*payments.Issuer, error) {
	return payments.NewIssuerFromEnv(db)
}

// SetLinkIssuerFactory overrides issuer construction.
func SetLinkIssuerFactory(f func(db *gorm.DB) (*payments.Issuer, error)) {
	linkIssuerFactory = f
}

// CreateInvoiceRequest is the admin payload for creating and sending an
// invoice in one step.
type CreateInvoiceRequest struct {
	ProjectID string          `json:"project_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Kind      string          `json:"type" validate:"omitempty,oneof=deposit final other"`
	DueDate   string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string          `json:"notes"`
}

// HandleCreateInvoice creates a draft invoice for a project, issues the
// Stripe payment link and returns the sent invoice. If link issuance fails
// the invoice stays draft and is returned with an error status so the admin
// can retry issuance.
func HandleCreateInvoice(c *fiber.Ctx) error {
	var req CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request_body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if !req.Amount.IsPositive() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "amount must be positive"})
	}
	if req.Kind == "" {
		req.Kind = models.InvoiceKindDeposit
	}

	db := database.GetDB()
	repos := repository.NewRepositories(db)

	project, err := repos.Project.GetByID(req.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "project_lookup_failed"})
	}
	client, err := repos.Profile.GetByID(project.ClientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "client_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "client_lookup_failed"})
	}

	invoice := &models.Invoice{
		InvoiceNumber: generateInvoiceNumber(),
		ProjectID:     project.ID,
		ClientID:      project.ClientID,
		Amount:        req.Amount,
		Kind:          req.Kind,
		Notes:         req.Notes,
	}
	if req.DueDate != "" {
		due, _ := time.Parse("2006-01-02", req.DueDate)
		invoice.DueDate = &due
	}
	if err := repos.Invoice.Create(invoice); err != nil {
		log.Errorf("[Invoices] create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invoice_create_failed"})
	}

	// Expected amount lands on the project at issuance; the paid flags are
	// set by the reconciliation engine only.
	switch req.Kind {
	case models.InvoiceKindDeposit:
		_ = repos.Project.UpdateFinancials(project.ID, map[string]interface{}{"deposit_amount": req.Amount})
	case models.InvoiceKindFinal:
		_ = repos.Project.UpdateFinancials(project.ID, map[string]interface{}{"final_payment_amount": req.Amount})
	}

	link, err := issueLink(c.Context(), db, invoice, client, project)
	if err != nil {
		log.Errorf("[Invoices] invoice=%s: link issuance failed: %v", invoice.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "payment_link_failed",
			"invoice": invoice,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"invoice":     invoice,
		"paymentLink": link,
	})
}

// HandleIssuePaymentLink re-issues the payment link for an existing draft or
// sent invoice.
func HandleIssuePaymentLink(c *fiber.Ctx) error {
	id := c.Params("id")

	db := database.GetDB()
	repos := repository.NewRepositories(db)

	invoice, err := repos.Invoice.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invoice_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invoice_lookup_failed"})
	}
	project, err := repos.Project.GetByID(invoice.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "project_lookup_failed"})
	}
	client, err := repos.Profile.GetByID(invoice.ClientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "client_lookup_failed"})
	}

	link, err := issueLink(c.Context(), db, invoice, client, project)
	if err != nil {
		if errors.Is(err, models.ErrInvoiceTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invoice_not_payable"})
		}
		log.Errorf("[Invoices] invoice=%s: link issuance failed: %v", invoice.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_link_failed"})
	}

	return c.JSON(fiber.Map{"success": true, "paymentLink": link})
}

// HandleListInvoices lists invoices, optionally filtered by client.
func HandleListInvoices(c *fiber.Ctx) error {
	repos := repository.NewRepositories(database.GetDB())

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		invoices []models.Invoice
		err      error
	)
	if clientID := strings.TrimSpace(c.Query("client_id")); clientID != "" {
		invoices, err = repos.Invoice.ListByClientID(clientID, offset, limit)
	} else {
		invoices, err = repos.Invoice.List(offset, limit)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "invoice_list_failed"})
	}
	return c.JSON(fiber.Map{"invoices": invoices})
}

func issueLink(ctx context.Context, db *gorm.DB, invoice *models.Invoice, client *models.Profile, project *models.Project) (string, error) {
	issuer, err := linkIssuerFactory(db)
	if err != nil {
		return "", err
	}
	return issuer.IssuePaymentLink(ctx, invoice, client.Email, invoiceDescription(invoice.Kind, project.Title))
}

func invoiceDescription(kind, projectTitle string) string {
	switch kind {
	case models.InvoiceKindDeposit:
		return "Acompte - " + projectTitle
	case models.InvoiceKindFinal:
		return "Solde final - " + projectTitle
	default:
		return "Facture - " + projectTitle
	}
}

func generateInvoiceNumber() string {
	now := time.Now()
	return fmt.Sprintf("VOLT-%d-%04d", now.Year(), now.UnixMilli()%10000)
}
