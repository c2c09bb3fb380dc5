package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProfileRoleAdmin  = "admin"
	ProfileRoleClient = "client"
)

// Profile is the minimal client/admin identity read by this service.
// Account management itself lives in the auth subsystem.
type Profile struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"email"`
	FullName  string    `gorm:"type:varchar(200)" json:"full_name"`
	Role      string    `gorm:"type:varchar(16);not null;default:'client'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
