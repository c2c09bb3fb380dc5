package repository

import (
	"github.com/voltagency/voltsite/app/models"
	"github.com/voltagency/voltsite/internal/pkg/payments"
	"gorm.io/gorm"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByID(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) GetByInvoiceNumber(number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Where("invoice_number = ?", number).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Update(invoice *models.Invoice, expectedVersion int) error {
	invoice.Version = expectedVersion + 1
	tx := r.db.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, expectedVersion).
		Select("status", "payment_status", "stripe_payment_link", "stripe_payment_intent_id", "due_date", "notes", "version", "updated_at").
		Updates(invoice)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return payments.ErrStaleInvoice
	}
	return nil
}

func (r *invoiceRepository) List(offset, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) ListByClientID(clientID string, offset, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("client_id = ?", clientID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).Count(&count).Error
	return count, err
}
