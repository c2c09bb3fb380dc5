package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Project carries the financial state written by the reconciliation engine.
// The deposit/final flags are set at most once per invoice and are never
// rolled back automatically.
type Project struct {
	ID                 string          `gorm:"type:char(36);primaryKey" json:"id"`
	ClientID           string          `gorm:"type:char(36);not null;index" json:"client_id"`
	Title              string          `gorm:"type:varchar(200);not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	DepositPaid        bool            `gorm:"not null;default:false" json:"deposit_paid"`
	DepositAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"deposit_amount"`
	FinalPaymentPaid   bool            `gorm:"not null;default:false" json:"final_payment_paid"`
	FinalPaymentAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"final_payment_amount"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
