package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	boletodomain "github.com/saudecred/cobranca/internal/boleto/domain"
	"github.com/saudecred/cobranca/internal/status"
)

// ImportPlanRequest imports an approved closing's installment plan for
// manual management ahead of any external issuance.
type ImportPlanRequest struct {
	ClosingID  snowflake.ID
	AutoIssue  bool
	LeadDays   int
	ImportedBy string
}

type Service interface {
	// Reconcile guarantees exactly one management record for the given
	// authoritative boleto. Idempotent; a missing clinic/company mapping
	// is logged and skipped, never fatal.
	Reconcile(ctx context.Context, boleto *boletodomain.Boleto) (*Record, error)
	// ImportPlan pre-creates management records for every planned
	// installment of a closing. Existing records are left untouched.
	ImportPlan(ctx context.Context, req ImportPlanRequest) ([]*Record, error)
	// ApplyStatus mirrors a classified status change onto the record.
	ApplyStatus(ctx context.Context, boletoID snowflake.ID, st status.Status, paymentDate *time.Time, paymentCents *int64) error
	// RollOverdue flips pending records past their due date to overdue.
	RollOverdue(ctx context.Context, limit int) (int, error)
	ListByClosing(ctx context.Context, closingID snowflake.ID) ([]*Record, error)
	// DueForIssuance lists records the sweep should feed to the
	// orchestrator, honoring each record's own lead time.
	DueForIssuance(ctx context.Context, limit int) ([]*Record, error)
}
