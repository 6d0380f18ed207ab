package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// IssueOutcome is the per-installment result of one orchestration run.
type IssueOutcome struct {
	Sequence       int          `json:"sequence"`
	DocumentNumber string       `json:"document_number"`
	BoletoID       snowflake.ID `json:"boleto_id,omitempty"`
	ExternalID     string       `json:"external_id,omitempty"`
	AlreadyIssued  bool         `json:"already_issued,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// IssueResult reports requested versus persisted counts so callers can
// render a partial-success message. An empty result is a valid outcome
// ("nothing new to issue").
type IssueResult struct {
	ClosingID snowflake.ID   `json:"closing_id"`
	Requested int            `json:"requested"`
	Persisted int            `json:"persisted"`
	Outcomes  []IssueOutcome `json:"outcomes"`
	Boletos   []*Boleto      `json:"-"`
}

// ApplySituationRequest carries an external status change (webhook or
// manual sync) for one slip, addressed by the document number rather than
// the unreliable external id.
type ApplySituationRequest struct {
	DocumentNumber string
	Situation      string
	PaymentDate    *time.Time
	PaymentCents   *int64
}

type Service interface {
	// IssueClosing runs the issuance state machine for every planned
	// installment of a closing. Safe to re-run; individual installment
	// failures are recorded in the result, not returned as errors.
	IssueClosing(ctx context.Context, closingID snowflake.ID) (*IssueResult, error)
	// ApplySituation classifies and applies an external status change to
	// the authoritative record and its management shadow.
	ApplySituation(ctx context.Context, req ApplySituationRequest) (*Boleto, error)
	// ListByClosing returns the closing's records with freshly derived
	// status (overdue rollover happens on read as well as on sync).
	ListByClosing(ctx context.Context, closingID snowflake.ID) ([]*Boleto, error)
}
