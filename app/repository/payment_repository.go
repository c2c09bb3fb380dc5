package repository

import (
	"github.com/voltagency/voltsite/app/models"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByInvoiceID(invoiceID string) ([]models.Payment, error) {
	var paymentsList []models.Payment
	err := r.db.Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&paymentsList).Error
	return paymentsList, err
}

func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var paymentsList []models.Payment
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&paymentsList).Error
	return paymentsList, err
}
