package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Closing is a finalized financing agreement for one patient. It is owned
// by the CRM workflow; this subsystem consumes it read-only.
type Closing struct {
	ID                     snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID              snowflake.ID  `gorm:"not null;index" json:"company_id"`
	ClinicID               *snowflake.ID `gorm:"index" json:"clinic_id,omitempty"`
	PatientID              snowflake.ID  `gorm:"not null;index" json:"patient_id"`
	TotalAmountCents       int64         `gorm:"not null" json:"total_amount_cents"`
	InstallmentCount       *int          `json:"installment_count,omitempty"`
	InstallmentAmountCents *int64        `json:"installment_amount_cents,omitempty"`
	FirstDueDate           *time.Time    `json:"first_due_date,omitempty"`
	Approved               bool          `gorm:"not null;default:false" json:"approved"`
	ClosedAt               time.Time     `gorm:"not null" json:"closed_at"`
	CreatedAt              time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Closing) TableName() string { return "closings" }

// HasInstallmentPlan reports whether the closing carries an explicit
// (count, per-installment amount) pair. When it does, the plan takes
// precedence over the lump total.
func (c Closing) HasInstallmentPlan() bool {
	return c.InstallmentCount != nil && *c.InstallmentCount > 0 && c.InstallmentAmountCents != nil
}

var (
	ErrNotFound    = errors.New("closing_not_found")
	ErrNotApproved = errors.New("closing_not_approved")
)
