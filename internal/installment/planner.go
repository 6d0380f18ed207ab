package installment

import (
	"errors"
	"fmt"
	"time"

	closingdomain "github.com/saudecred/cobranca/internal/closing/domain"
)

// ErrInvalidPlan is returned when a closing's payment terms cannot yield a
// deterministic installment plan. It is fatal to that closing's run.
var ErrInvalidPlan = errors.New("invalid_installment_plan")

// lumpSumGraceDays is the fallback horizon for a single slip when the
// closing has no due-date anchor.
const lumpSumGraceDays = 30

// Descriptor is one planned slip. It is never persisted; recomputing from
// the same closing and sequence always yields the same document number,
// which is the idempotency key for issuance.
type Descriptor struct {
	Sequence       int
	DueDate        time.Time
	AmountCents    int64
	DocumentNumber string
}

// Plan derives the ordered, 1-indexed installment descriptors for a
// closing. An explicit (count, per-installment amount) pair takes
// precedence over the lump total; reconciling count*amount against the
// total is the caller's concern (see AmountsReconcile).
func Plan(c closingdomain.Closing) ([]Descriptor, error) {
	if c.HasInstallmentPlan() {
		count := *c.InstallmentCount
		amount := *c.InstallmentAmountCents
		if amount <= 0 {
			return nil, fmt.Errorf("%w: non-positive installment amount", ErrInvalidPlan)
		}
		if c.FirstDueDate == nil || c.FirstDueDate.IsZero() {
			return nil, fmt.Errorf("%w: installment plan requires a first due date", ErrInvalidPlan)
		}

		anchor := *c.FirstDueDate
		descriptors := make([]Descriptor, 0, count)
		for i := 0; i < count; i++ {
			descriptors = append(descriptors, Descriptor{
				Sequence:       i + 1,
				DueDate:        anchor.AddDate(0, i, 0),
				AmountCents:    amount,
				DocumentNumber: fmt.Sprintf("%d-P%d", c.ID, i+1),
			})
		}
		return descriptors, nil
	}

	if c.TotalAmountCents <= 0 {
		return nil, fmt.Errorf("%w: non-positive total amount", ErrInvalidPlan)
	}

	due := time.Time{}
	if c.FirstDueDate != nil && !c.FirstDueDate.IsZero() {
		due = *c.FirstDueDate
	} else {
		if c.ClosedAt.IsZero() {
			return nil, fmt.Errorf("%w: no due date resolvable", ErrInvalidPlan)
		}
		due = c.ClosedAt.AddDate(0, 0, lumpSumGraceDays)
	}

	return []Descriptor{{
		Sequence:       1,
		DueDate:        due,
		AmountCents:    c.TotalAmountCents,
		DocumentNumber: fmt.Sprintf("%d", c.ID),
	}}, nil
}

// AmountsReconcile reports whether an explicit installment plan adds up to
// the closing's lump total. A mismatch is logged by the orchestrator, not
// silently redistributed.
func AmountsReconcile(c closingdomain.Closing) bool {
	if !c.HasInstallmentPlan() {
		return true
	}
	return int64(*c.InstallmentCount) * *c.InstallmentAmountCents == c.TotalAmountCents
}
