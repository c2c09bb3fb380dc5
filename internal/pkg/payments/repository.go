package payments

import (
	"errors"
	"time"

	"github.com/voltagency/voltsite/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleInvoice is returned when an optimistic-concurrency update finds
// the invoice version changed underneath the transaction.
var ErrStaleInvoice = errors.New("invoice was modified concurrently")

// Repository provides the DB operations used by the reconciliation engine
// and the payment link issuer. Transaction yields a repository bound to a
// single database transaction; every event application goes through it.
type Repository interface {
	Transaction(fn func(Repository) error) error

	GetInvoiceByID(id string) (*models.Invoice, error)
	GetInvoiceByPaymentIntentID(paymentIntentID string) (*models.Invoice, error)
	// UpdateInvoice persists the invoice iff its stored version still equals
	// expectedVersion, bumping the version. ErrStaleInvoice otherwise.
	UpdateInvoice(inv *models.Invoice, expectedVersion int) error

	GetPaymentByIntentID(paymentIntentID string) (*models.Payment, error)
	// CreatePaymentIfNotExists inserts the ledger row unless one already
	// exists for the same (invoice, payment intent). Returns whether a row
	// was created.
	CreatePaymentIfNotExists(p *models.Payment) (bool, error)

	GetProjectByID(id string) (*models.Project, error)
	UpdateProjectFinancials(projectID string, updates map[string]interface{}) error

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetInvoiceByID(id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) GetInvoiceByPaymentIntentID(paymentIntentID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("stripe_payment_intent_id = ?", paymentIntentID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormRepository) UpdateInvoice(inv *models.Invoice, expectedVersion int) error {
	inv.Version = expectedVersion + 1
	tx := r.db.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", inv.ID, expectedVersion).
		Select("status", "payment_status", "stripe_payment_link", "stripe_payment_intent_id", "paid_at", "version", "updated_at").
		Updates(inv)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrStaleInvoice
	}
	return nil
}

func (r *gormRepository) GetPaymentByIntentID(paymentIntentID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("stripe_payment_intent_id = ?", paymentIntentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreatePaymentIfNotExists(p *models.Payment) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "invoice_id"},
			{Name: "stripe_payment_intent_id"},
		},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetProjectByID(id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *gormRepository) UpdateProjectFinancials(projectID string, updates map[string]interface{}) error {
	return r.db.Model(&models.Project{}).Where("id = ?", projectID).Updates(updates).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
