package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Patient is the clinic customer a closing bills. Only the identity and
// address fields required by the bank issuer are modeled here.
type Patient struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID      snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name           string       `gorm:"not null" json:"name"`
	DocumentNumber string       `gorm:"column:document_number" json:"document_number"`
	Street         string       `json:"street,omitempty"`
	Number         string       `json:"number,omitempty"`
	District       string       `json:"district,omitempty"`
	City           string       `json:"city,omitempty"`
	State          string       `json:"state,omitempty"`
	PostalCode     string       `gorm:"column:postal_code" json:"postal_code,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }

var ErrNotFound = errors.New("patient_not_found")
