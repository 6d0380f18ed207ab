package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/saudecred/cobranca/internal/status"
	"gorm.io/datatypes"
)

// SituationError marks a record persisted for a failed issuance attempt.
// Such records carry no identifiers and may be retried on a later run.
const SituationError = "ERRO"

// Boleto is the authoritative record for one issued (or attempted) payment
// slip.
//
// (ClosingID, DocumentNumber) is the business key and the only reliable
// idempotency anchor. ExternalID is the bank's "nosso número"; the sandbox
// returns colliding values across unrelated slips, so it is stored
// nullable and a conflict on it is handled, never trusted. A record whose
// ExternalID is set is never deleted: the slip exists at the bank.
type Boleto struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClosingID      snowflake.ID      `gorm:"not null;uniqueIndex:ux_boletos_closing_document,priority:1" json:"closing_id"`
	PatientID      snowflake.ID      `gorm:"not null;index" json:"patient_id"`
	CompanyID      snowflake.ID      `gorm:"not null;index" json:"company_id"`
	DocumentNumber string            `gorm:"not null;uniqueIndex:ux_boletos_closing_document,priority:2" json:"document_number"`
	Sequence       int               `gorm:"not null" json:"sequence"`
	ExternalID     *string           `gorm:"uniqueIndex:ux_boletos_external_id" json:"external_id,omitempty"`
	Barcode        string            `json:"barcode,omitempty"`
	PaymentLine    string            `json:"payment_line,omitempty"`
	DocumentURL    string            `json:"document_url,omitempty"`
	AmountCents    int64             `gorm:"not null" json:"amount_cents"`
	DueDate        time.Time         `gorm:"not null" json:"due_date"`
	IssuedAt       *time.Time        `json:"issued_at,omitempty"`
	Situation      string            `json:"situation,omitempty"`
	Status         status.Status     `gorm:"not null" json:"status"`
	IssueError     string            `gorm:"column:issue_error" json:"issue_error,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Boleto) TableName() string { return "boletos" }

// Issued reports whether the record represents a slip that actually exists
// at the bank, as opposed to a persisted failure.
func (b Boleto) Issued() bool {
	return b.IssueError == "" && b.Situation != SituationError
}

var (
	ErrNotFound = errors.New("boleto_not_found")
	ErrConflict = errors.New("boleto_conflict")
)
