package status

import (
	"strings"
	"time"
)

// Status is the closed set of workflow states a payment slip can be in.
// External situation strings never reach the rest of the system without
// passing through Classify.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string { return string(s) }

// TokenTable maps the bank's free-form situation vocabulary onto the
// closed status set. Matching is case-insensitive on the trimmed token.
type TokenTable struct {
	Paid      []string `mapstructure:"paid"`
	Cancelled []string `mapstructure:"cancelled"`
	Open      []string `mapstructure:"open"`
}

// DefaultTokenTable returns the vocabulary observed from the bank sandbox
// and production environments. Casing here is irrelevant; tokens are
// normalized before comparison.
func DefaultTokenTable() TokenTable {
	return TokenTable{
		Paid: []string{
			"liquidado",
			"liquidado hoje",
			"liquidado em cartorio",
			"baixado",
			"pago",
			"pagamento efetuado",
		},
		Cancelled: []string{
			"cancelado",
			"baixa solicitada",
			"titulo cancelado",
		},
		Open: []string{
			"em aberto",
			"aberto",
			"emitido",
			"registrado",
			"vencido",
			"a vencer",
		},
	}
}

func (t TokenTable) matches(list []string, token string) bool {
	for _, candidate := range list {
		if strings.EqualFold(strings.TrimSpace(candidate), token) {
			return true
		}
	}
	return false
}

// Classify resolves a slip's workflow status from the external situation
// string, its due date and an explicit payment date when one is known.
// Precedence: payment date, paid tokens, cancellation tokens, open tokens
// with due-date arithmetic, then due-date arithmetic alone. Unknown tokens
// fall through to the due-date path. Date comparison ignores time of day.
func Classify(table TokenTable, situation string, dueDate time.Time, paymentDate *time.Time, today time.Time) Status {
	if paymentDate != nil && !paymentDate.IsZero() {
		return StatusPaid
	}

	token := strings.TrimSpace(situation)
	switch {
	case token == "":
		// no usable external string
	case table.matches(table.Paid, token):
		return StatusPaid
	case table.matches(table.Cancelled, token):
		return StatusCancelled
	case table.matches(table.Open, token):
		// open at the bank; fall through to due-date arithmetic
	default:
		// unknown token: treat like an absent situation rather than
		// guessing a terminal state
	}

	if beforeDay(dueDate, today) {
		return StatusOverdue
	}
	return StatusPending
}

// beforeDay reports whether a falls on an earlier calendar day than b.
func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
