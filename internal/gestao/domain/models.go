package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/status"
)

// Record is the management-facing shadow of one authoritative boleto.
// It exists for human workflow: manual auto-issue toggles, payment
// bookkeeping, notes. At most one Record per boleto; the reconciler is
// the only writer that creates or links them.
//
// A Record may precede its boleto: approving a closing imports the whole
// installment plan for manual management before anything is issued, in
// which case BoletoID is null until the reconciler links it.
type Record struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	BoletoID       *snowflake.ID `gorm:"uniqueIndex:ux_gestao_boleto" json:"boleto_id,omitempty"`
	ClosingID      snowflake.ID  `gorm:"not null;uniqueIndex:ux_gestao_closing_document,priority:1" json:"closing_id"`
	DocumentNumber string        `gorm:"not null;uniqueIndex:ux_gestao_closing_document,priority:2" json:"document_number"`
	Sequence       int           `gorm:"not null" json:"sequence"`
	CompanyID      snowflake.ID  `gorm:"not null;index" json:"company_id"`
	ClinicID       *snowflake.ID `gorm:"index" json:"clinic_id,omitempty"`
	PatientID      snowflake.ID  `gorm:"not null;index" json:"patient_id"`
	ExternalID     *string       `json:"external_id,omitempty"`
	Barcode        string        `json:"barcode,omitempty"`
	PaymentLine    string        `json:"payment_line,omitempty"`
	DocumentURL    string        `json:"document_url,omitempty"`
	AmountCents    int64         `gorm:"not null" json:"amount_cents"`
	DueDate        time.Time     `gorm:"not null" json:"due_date"`
	Status         status.Status `gorm:"not null" json:"status"`
	AutoIssue      bool          `gorm:"not null;default:false" json:"auto_issue"`
	AlreadyIssued  bool          `gorm:"not null;default:false" json:"already_issued"`
	LeadDays       int           `gorm:"not null;default:0" json:"lead_days"`
	PaymentDate    *time.Time    `json:"payment_date,omitempty"`
	PaymentCents   *int64        `json:"payment_cents,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	ImportedBy     string        `json:"imported_by,omitempty"`
	UpdatedBy      string        `json:"updated_by,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Record) TableName() string { return "boletos_gestao" }

var (
	ErrNotFound      = errors.New("gestao_record_not_found")
	ErrAlreadyLinked = errors.New("gestao_record_already_linked")
)
