package repository

import (
	"github.com/voltagency/voltsite/app/models"
)

// InvoiceRepository defines the interface for invoice database operations
// used by the API controllers. Webhook-driven mutations go through the
// payments package repository instead, inside its transaction boundary.
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id string) (*models.Invoice, error)
	GetByInvoiceNumber(number string) (*models.Invoice, error)
	// Update persists the invoice iff the stored version still matches
	// expectedVersion.
	Update(invoice *models.Invoice, expectedVersion int) error
	List(offset, limit int) ([]models.Invoice, error)
	ListByClientID(clientID string, offset, limit int) ([]models.Invoice, error)
	Count() (int64, error)
}

// PaymentRepository exposes read access to the payment ledger. Rows are
// written only by the reconciliation engine.
type PaymentRepository interface {
	GetByInvoiceID(invoiceID string) ([]models.Payment, error)
	List(offset, limit int) ([]models.Payment, error)
}

// ProjectRepository defines project read/update operations.
type ProjectRepository interface {
	GetByID(id string) (*models.Project, error)
	Update(project *models.Project) error
	UpdateFinancials(projectID string, updates map[string]interface{}) error
}

// ProfileRepository resolves client contact info for receipts and invoices.
type ProfileRepository interface {
	GetByID(id string) (*models.Profile, error)
	GetByEmail(email string) (*models.Profile, error)
}
